package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// maxHistoryForPrompt - сколько последних сообщений истории уходит рассказчику.
	maxHistoryForPrompt = 10
	defaultTemperature  = 0.7
	// minSummaryLength - более короткое резюме от модели считается мусором и отбрасывается.
	minSummaryLength = 10
)

// NarrationRequest - запрос следующего сегмента истории.
type NarrationRequest struct {
	SystemPrompt string
	// History - тексты сообщений истории, последнее - действие игрока
	History     []string
	Turn        int
	Model       string
	Temperature float64
}

// Narration - результат генерации сегмента.
type Narration struct {
	StorySegment string
	Choices      []string
	Raw          string
}

// SummaryRequest - запрос обновления краткого содержания.
type SummaryRequest struct {
	SystemPrompt    string
	ExistingSummary string
	Recent          []string
	Model           string
}

// Narrator генерирует сегменты истории и краткое содержание.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (*Narration, error)
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

func narrationUserPrompt(history []string) string {
	header := "[Start of History]"
	if len(history) > maxHistoryForPrompt {
		history = history[len(history)-maxHistoryForPrompt:]
		header = "[Last interactions]:"
	}
	var b strings.Builder
	b.WriteString("Recent Interaction History:\n")
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(strings.Join(history, "\n"))
	b.WriteString("\n\n(The user's most recent action is the last message in the history above)\n\nYour JSON Response:")
	return b.String()
}

func summaryUserPrompt(existing string, recent []string) string {
	if existing == "" {
		existing = "[No previous summary]"
	}
	return fmt.Sprintf("Existing Summary:\n%s\n\nRecent Developments to incorporate:\n%s\n\nProvide ONLY the updated summary text as requested in the system prompt.",
		existing, strings.Join(recent, "\n"))
}

var jsonFenceRe = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// parseNarration извлекает {storySegment, choices} из ответа модели:
// JSON в markdown блоке, иначе между первой '{' и последней '}'.
func parseNarration(raw string) (*Narration, error) {
	candidate := raw
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		candidate = strings.TrimSpace(m[1])
	} else if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start != -1 && end > start {
		candidate = raw[start : end+1]
	}

	var parsed struct {
		StorySegment *string  `json:"storySegment"`
		Choices      []string `json:"choices"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, fmt.Errorf("%w: model response is not valid JSON: %v", ErrGenerationFailed, err)
	}
	if parsed.StorySegment == nil || len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: model response has invalid structure", ErrGenerationFailed)
	}
	return &Narration{StorySegment: *parsed.StorySegment, Choices: parsed.Choices, Raw: raw}, nil
}

// acceptSummary возвращает новое резюме или existing, если модель вернула слишком короткий текст.
func acceptSummary(existing, generated string) string {
	generated = strings.TrimSpace(generated)
	if len([]rune(generated)) < minSummaryLength {
		return existing
	}
	return generated
}

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// injectContext подставляет значения в плейсхолдеры {name} системного промпта.
// Неизвестные плейсхолдеры остаются как есть.
func injectContext(prompt string, fields map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(prompt, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := fields[key]; ok {
			return v
		}
		return m
	})
}
