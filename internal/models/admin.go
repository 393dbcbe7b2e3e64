package models

import "encoding/json"

// StoryTypeInput - тело создания/обновления типа истории.
type StoryTypeInput struct {
	Name                    string  `json:"name" binding:"required"`
	Description             *string `json:"description,omitempty"`
	InitialExtractionPrompt string  `json:"initial_extraction_prompt" binding:"required"`
	DynamicAnalysisPrompt   string  `json:"dynamic_analysis_prompt" binding:"required"`
	SummaryPrompt           string  `json:"summary_prompt" binding:"required"`
}

// StoryTypeBasic - элемент списка типов историй.
type StoryTypeBasic struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// PromptSimple - промпт в коротком виде.
type PromptSimple struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TurnStart int    `json:"turn_start"`
	TurnEnd   *int   `json:"turn_end,omitempty"`
}

// StoryTypeDetail - тип истории вместе с назначенными промптами.
type StoryTypeDetail struct {
	ID string `json:"id"`
	StoryTypeInput
	CreatedAt    Timestamp      `json:"created_at"`
	UpdatedAt    Timestamp      `json:"updated_at"`
	StoryPrompts []PromptSimple `json:"story_prompts"`
}

// PromptInput - тело создания промпта.
type PromptInput struct {
	Name         string `json:"name" binding:"required"`
	SystemPrompt string `json:"system_prompt" binding:"required"`
	TurnStart    int    `json:"turn_start" binding:"gte=0"`
	TurnEnd      *int   `json:"turn_end,omitempty"`
}

// AssignPromptRequest - назначение промпта типу истории.
type AssignPromptRequest struct {
	PromptID    string `json:"prompt_id" binding:"required"`
	StoryTypeID string `json:"story_type_id" binding:"required"`
}

// BaseStoryInput - тело создания/обновления шаблона.
type BaseStoryInput struct {
	StoryTypeID         string `json:"story_type_id" binding:"required"`
	Title               string `json:"title" binding:"required"`
	Description         string `json:"description"`
	OriginalTaleContext string `json:"original_tale_context"`
	InitialSystemPrompt string `json:"initial_system_prompt"`
	InitialSummary      string `json:"initial_summary"`
	Language            string `json:"language"`
}

// BaseStoryRef - ответ на создание/обновление шаблона.
type BaseStoryRef struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StoryTypeID string `json:"story_type_id"`
	Success     bool   `json:"success"`
}

// StoryTypeRef - краткая ссылка на тип истории.
type StoryTypeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BaseStoryDetail - полное описание шаблона для админки.
type BaseStoryDetail struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	OriginalTaleContext  string          `json:"original_tale_context"`
	InitialSystemPrompt  string          `json:"initial_system_prompt"`
	InitialSummary       string          `json:"initial_summary"`
	Language             string          `json:"language"`
	IsActive             bool            `json:"is_active"`
	CreatedAt            Timestamp       `json:"created_at"`
	UpdatedAt            Timestamp       `json:"updated_at"`
	InitialStoryElements json.RawMessage `json:"initial_story_elements,omitempty"`
	StoryType            *StoryTypeRef   `json:"story_type"`
	StoryTypeID          string          `json:"story_type_id"`
}

// ToggleRequest - тело PUT /admin/toggle-base-story/{id}.
type ToggleRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ToggleResponse - ответ переключения активности шаблона.
type ToggleResponse struct {
	ID       string `json:"id"`
	IsActive bool   `json:"is_active"`
	Success  bool   `json:"success"`
}

// SuccessResponse - {"success": true}.
type SuccessResponse struct {
	Success bool `json:"success"`
}
