package devserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"novel-client/internal/auth"
	"novel-client/internal/config"
	"novel-client/internal/models"
)

const (
	sampleOpeningPrompt = `You are a storyteller narrating the fairy tale "{base_story_title}" in {language}.
This is the opening of the story. Introduce the hero and the setting.
Original tale: {original_tale_context}
Respond with JSON: {"storySegment": "...", "choices": ["...", "...", "..."]}`

	sampleMainPrompt = `You are continuing the fairy tale "{base_story_title}" in {language}. Turn {current_turn_number}.
Story so far: {current_summary}
{last_choices}
Respond with JSON: {"storySegment": "...", "choices": ["...", "...", "..."]}`

	sampleSummaryPrompt = "Condense the story so far into a short paragraph, keeping names and open threads."
)

// Seed создает пользователей и (опционально) демонстрационный шаблон.
// Пустые пароли генерируются и выводятся в лог.
func Seed(ctx context.Context, cfg config.SeedConfig, store *Store, authSvc *auth.Service, logger *zap.Logger) error {
	log := logger.Named("Seed")

	users := []struct {
		username string
		password string
		roles    []string
	}{
		{cfg.AdminUsername, cfg.AdminPassword, []string{models.RoleAdmin, models.RoleUser}},
		{cfg.PlayerUsername, cfg.PlayerPassword, []string{models.RoleUser}},
	}
	for _, u := range users {
		if u.username == "" {
			continue
		}
		password := u.password
		if password == "" {
			password = uuid.NewString()
			log.Warn("Generated password for seeded user", zap.String("username", u.username), zap.String("password", password))
		}
		if _, err := authSvc.Register(ctx, u.username, password, u.roles); err != nil {
			if errors.Is(err, models.ErrConflict) {
				log.Info("Seeded user already exists", zap.String("username", u.username))
				continue
			}
			return fmt.Errorf("failed to seed user %s: %w", u.username, err)
		}
		log.Info("Seeded user", zap.String("username", u.username), zap.Strings("roles", u.roles))
	}

	if !cfg.SampleStory {
		return nil
	}
	return seedSampleStory(store, log)
}

func seedSampleStory(store *Store, log *zap.Logger) error {
	description := "Classic fairy tales retold one choice at a time."
	st := store.CreateStoryType(models.StoryTypeInput{
		Name:                    "Fairy tale",
		Description:             &description,
		InitialExtractionPrompt: "Extract the main characters, setting and magic elements of the tale.",
		DynamicAnalysisPrompt:   "Note how the characters and world changed in the latest events.",
		SummaryPrompt:           sampleSummaryPrompt,
	})

	openingEnd := 0
	opening := store.CreatePrompt(models.PromptInput{Name: "Opening", SystemPrompt: sampleOpeningPrompt, TurnStart: 0, TurnEnd: &openingEnd})
	mainPrompt := store.CreatePrompt(models.PromptInput{Name: "Main", SystemPrompt: sampleMainPrompt, TurnStart: 1})
	for _, pid := range []string{opening.ID, mainPrompt.ID} {
		if err := store.AssignPrompt(pid, st.ID); err != nil {
			return fmt.Errorf("failed to assign sample prompt: %w", err)
		}
	}

	ref, err := store.CreateBaseStory(models.BaseStoryInput{
		StoryTypeID:         st.ID,
		Title:               "The Fox and the Lantern",
		Description:         "A clever fox finds a lantern that shows hidden paths.",
		OriginalTaleContext: "A fox discovers a lantern in the woods; its light reveals paths only the brave may walk.",
		InitialSummary:      "A fox has just found a strange lantern at the edge of the forest.",
		Language:            "English",
	})
	if err != nil {
		return fmt.Errorf("failed to seed sample base story: %w", err)
	}
	log.Info("Seeded sample story", zap.String("storyTypeId", st.ID), zap.String("baseStoryId", ref.ID))
	return nil
}
