package session

import "novel-client/internal/models"

// GenerationConfig - параметры генерации, которые передаются бэкенду как debugConfig.
// Пустые поля не отправляются, бэкенд подставляет свои значения.
type GenerationConfig struct {
	StoryModel          string
	SummaryModel        string
	Temperature         *float64 `validate:"omitempty,gte=0,lte=1"`
	SystemPrompt        string
	SummarySystemPrompt string
}

func (g GenerationConfig) debugConfig() *models.DebugConfig {
	dc := &models.DebugConfig{Temperature: g.Temperature}
	empty := g.Temperature == nil
	set := func(dst **string, v string) {
		if v != "" {
			s := v
			*dst = &s
			empty = false
		}
	}
	set(&dc.StoryModel, g.StoryModel)
	set(&dc.SummaryModel, g.SummaryModel)
	set(&dc.SystemPrompt, g.SystemPrompt)
	set(&dc.SummarySystemPrompt, g.SummarySystemPrompt)
	if empty {
		return nil
	}
	return dc
}

// toModel переводит действие в формат запроса генерации.
func (a Action) toModel() *models.StoryAction {
	if a.IsCustom() {
		s := a.CustomInput
		return &models.StoryAction{CustomInput: &s}
	}
	s := a.Choice
	return &models.StoryAction{Choice: &s}
}

func (a Action) text() string {
	if a.IsCustom() {
		return a.CustomInput
	}
	return a.Choice
}

func (a Action) kind() RecordKind {
	if a.IsCustom() {
		return KindPlayerCustomInput
	}
	return KindPlayerChoice
}
