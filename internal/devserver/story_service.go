package devserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"novel-client/internal/models"
)

const (
	// summaryTurnInterval - каждые N завершенных ходов краткое содержание обновляется в фоне.
	summaryTurnInterval = 3
	recentForSummary    = 10
)

var errSummarySuperseded = errors.New("summary changed during background refresh")

// StoryService - игровая логика devserver поверх Store и Narrator.
type StoryService struct {
	store    *Store
	narrator Narrator
	logger   *zap.Logger

	// mu защищает closed и Add у background: после Close новые фоновые задачи не запускаются
	mu         sync.Mutex
	closed     bool
	background sync.WaitGroup
	// baseCtx отменяется в Close и прерывает фоновые обновления
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewStoryService(store *Store, narrator Narrator, logger *zap.Logger) *StoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StoryService{
		store:    store,
		narrator: narrator,
		logger:   logger.Named("StoryService"),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Close останавливает фоновые задачи и дожидается их завершения.
func (s *StoryService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.background.Wait()
}

// FormatAction превращает действие в запись истории: "My choice: X" или "My custom action: X".
func FormatAction(action *models.StoryAction) (messageType, content string, ok bool) {
	switch {
	case action == nil:
		return "", "", false
	case action.Choice != nil && *action.Choice != "":
		return models.MessageTypeChoice, "My choice: " + *action.Choice, true
	case action.CustomInput != nil && *action.CustomInput != "":
		return models.MessageTypeUserInput, "My custom action: " + *action.CustomInput, true
	}
	return "", "", false
}

// GenerateSegment проверяет номер хода, выбирает промпт, вызывает рассказчика и продвигает историю на ход.
// Действие и сегмент записываются вместе только после успешной генерации.
func (s *StoryService) GenerateSegment(ctx context.Context, req models.GenerateRequest) (*models.StoryResponse, error) {
	log := s.logger.With(zap.String("storyId", req.StoryID), zap.Int("turn", req.CurrentTurnNumber))

	story, err := s.store.GetUserStory(req.StoryID)
	if err != nil {
		return nil, err
	}
	if req.CurrentTurnNumber != story.CurrentTurnNumber {
		log.Warn("Turn number mismatch", zap.Int("expected", story.CurrentTurnNumber))
		return nil, turnMismatch(story.CurrentTurnNumber, req.CurrentTurnNumber)
	}
	msgType, actionText, ok := FormatAction(req.Action)
	if !ok {
		return nil, badRequest("No action (choice or customInput) provided.")
	}
	if t := req.DebugConfig; t != nil && t.Temperature != nil && (*t.Temperature < 0 || *t.Temperature > 1) {
		return nil, badRequest("Temperature must be between 0 and 1.")
	}

	sc, err := s.store.StoryContext(story.BaseStoryID)
	if err != nil {
		return nil, err
	}

	debug := req.DebugConfig
	if debug == nil {
		debug = &models.DebugConfig{}
	}
	systemPrompt := ""
	if debug.SystemPrompt != nil && *debug.SystemPrompt != "" {
		systemPrompt = *debug.SystemPrompt
	} else if p, ok := s.store.PromptForTurn(sc.StoryTypeID, story.CurrentTurnNumber); ok {
		systemPrompt = p
	}
	if systemPrompt == "" {
		log.Error("No system prompt for turn", zap.String("storyTypeId", sc.StoryTypeID))
		return nil, &detailError{
			kind:   ErrStoryConfiguration,
			detail: "Story configuration error: Cannot determine system prompt for story generation at this turn.",
		}
	}
	systemPrompt = injectContext(systemPrompt, map[string]string{
		"current_turn_number":   strconv.Itoa(story.CurrentTurnNumber),
		"language":              sc.Language,
		"base_story_title":      sc.BaseTitle,
		"last_choices":          formatLastChoices(story.LastChoices),
		"current_summary":       story.CurrentSummary,
		"original_tale_context": sc.OriginalTaleContext,
	})

	history := make([]string, 0, len(story.StoryMessages)+1)
	for _, m := range story.StoryMessages {
		history = append(history, m.Content)
	}
	history = append(history, actionText)

	temperature := defaultTemperature
	if debug.Temperature != nil {
		temperature = *debug.Temperature
	}
	narration, err := s.narrator.Narrate(ctx, NarrationRequest{
		SystemPrompt: systemPrompt,
		History:      history,
		Turn:         story.CurrentTurnNumber,
		Model:        deref(debug.StoryModel),
		Temperature:  temperature,
	})
	if err != nil {
		log.Error("Narrator failed", zap.Error(err))
		if errors.Is(err, ErrGenerationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	turn := story.CurrentTurnNumber
	now := s.store.timestamp()
	updated, err := s.store.UpdateUserStory(req.StoryID, func(d *models.SessionDetail) error {
		if d.CurrentTurnNumber != turn {
			return turnMismatch(d.CurrentTurnNumber, turn)
		}
		d.StoryMessages = append(d.StoryMessages,
			models.StoryMessage{Type: msgType, Content: actionText, Turn: turn, Timestamp: now},
			models.StoryMessage{Type: models.MessageTypeStory, Content: narration.StorySegment, Turn: turn, Timestamp: now},
		)
		d.CurrentTurnNumber = turn + 1
		d.LastChoices = append([]string(nil), narration.Choices...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if turn > 0 && turn%summaryTurnInterval == 0 {
		s.refreshSummaryAsync(req.StoryID, sc.StoryTypeID, deref(debug.SummaryModel), deref(debug.SummarySystemPrompt))
	}

	resp := &models.StoryResponse{
		StorySegment: narration.StorySegment,
		Choices:      narration.Choices,
		// Краткое содержание до фонового обновления
		UpdatedSummary: story.CurrentSummary,
		NextTurnNumber: updated.CurrentTurnNumber,
		StoryID:        req.StoryID,
	}
	if req.DebugConfig != nil && narration.Raw != "" {
		raw := narration.Raw
		resp.RawResponse = &raw
	}
	log.Info("Segment generated", zap.Int("nextTurn", resp.NextTurnNumber))
	return resp, nil
}

// Summarize синхронно пересчитывает краткое содержание истории.
func (s *StoryService) Summarize(ctx context.Context, storyID string) (*models.SummarizeResponse, error) {
	summary, err := s.summarize(ctx, storyID, "", "", false)
	if err != nil {
		return nil, err
	}
	return &models.SummarizeResponse{StoryID: storyID, UpdatedSummary: summary, Success: true}, nil
}

// summarize пересчитывает краткое содержание. При onlyIfUnchanged результат не записывается,
// если содержание успело измениться за время вызова рассказчика.
func (s *StoryService) summarize(ctx context.Context, storyID, model, promptOverride string, onlyIfUnchanged bool) (string, error) {
	story, err := s.store.GetUserStory(storyID)
	if err != nil {
		return "", err
	}
	sc, err := s.store.StoryContext(story.BaseStoryID)
	if err != nil {
		return "", err
	}
	prompt := promptOverride
	if prompt == "" {
		prompt, _ = s.store.SummaryPrompt(sc.StoryTypeID)
	}

	msgs := story.StoryMessages
	if len(msgs) > recentForSummary {
		msgs = msgs[len(msgs)-recentForSummary:]
	}
	recent := make([]string, 0, len(msgs))
	for _, m := range msgs {
		recent = append(recent, m.Content)
	}

	summary, err := s.narrator.Summarize(ctx, SummaryRequest{
		SystemPrompt:    prompt,
		ExistingSummary: story.CurrentSummary,
		Recent:          recent,
		Model:           model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize story %s: %w", storyID, err)
	}
	updated, err := s.store.UpdateUserStory(storyID, func(d *models.SessionDetail) error {
		if onlyIfUnchanged && d.CurrentSummary != story.CurrentSummary {
			return errSummarySuperseded
		}
		d.CurrentSummary = summary
		return nil
	})
	if err != nil {
		return "", err
	}
	return updated.CurrentSummary, nil
}

func (s *StoryService) refreshSummaryAsync(storyID, storyTypeID, model, prompt string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.background.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.background.Done()
		log := s.logger.With(zap.String("storyId", storyID), zap.String("storyTypeId", storyTypeID))
		if _, err := s.summarize(s.baseCtx, storyID, model, prompt, true); err != nil {
			if errors.Is(err, errSummarySuperseded) {
				log.Debug("Background summary discarded, summary changed meanwhile")
				return
			}
			log.Warn("Background summary failed", zap.Error(err))
			return
		}
		log.Debug("Background summary updated")
	}()
}

// Complete помечает историю завершенной.
func (s *StoryService) Complete(storyID string) (*models.StatusResponse, error) {
	if _, err := s.store.UpdateUserStory(storyID, func(d *models.SessionDetail) error {
		d.IsCompleted = true
		return nil
	}); err != nil {
		return nil, err
	}
	return &models.StatusResponse{ID: storyID, Success: true, Message: "Story marked as completed"}, nil
}

// Continue снимает отметку о завершении; номер хода не меняется.
func (s *StoryService) Continue(storyID string) (*models.StatusResponse, error) {
	updated, err := s.store.UpdateUserStory(storyID, func(d *models.SessionDetail) error {
		if !d.IsCompleted {
			return badRequest("Story is not completed")
		}
		d.IsCompleted = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	turn := updated.CurrentTurnNumber
	return &models.StatusResponse{ID: storyID, Success: true, Message: "Story continuation enabled", CurrentTurnNumber: &turn}, nil
}

func turnMismatch(expected, got int) error {
	return conflict("Turn number mismatch. Expected %d, but request is for %d. Please refresh.", expected, got)
}

func formatLastChoices(choices []string) string {
	if len(choices) == 0 {
		return "[No previous choices recorded]"
	}
	return "Previous choices offered: " + strings.Join(choices, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
