package models

import "encoding/json"

// Типы сообщений истории, как их хранит бэкенд.
const (
	MessageTypeStory     = "story"
	MessageTypeChoice    = "choice"
	MessageTypeUserInput = "userInput"
)

// MaxCustomInputLength - максимальная длина произвольного действия игрока (в символах).
const MaxCustomInputLength = 150

// Template ("base story") - шаблон, из которого создаются сессии.
type Template struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	IsActive      bool   `json:"is_active"`
	StoryTypeName string `json:"storyTypeName"`
}

// CreateSessionRequest - тело POST /stories.
type CreateSessionRequest struct {
	UserID      string  `json:"userId" binding:"required"`
	BaseStoryID string  `json:"baseStoryId" binding:"required"`
	Title       *string `json:"title,omitempty"`
}

// CreatedSession - ответ POST /stories.
type CreatedSession struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	BaseStoryTitle    string          `json:"baseStoryTitle"`
	CurrentTurnNumber int             `json:"currentTurnNumber"`
	CurrentSummary    string          `json:"currentSummary"`
	IsCompleted       bool            `json:"isCompleted"`
	CreatedAt         Timestamp       `json:"createdAt"`
	UpdatedAt         Timestamp       `json:"updatedAt"`
	StoryContext      json.RawMessage `json:"story_context,omitempty"`
}

// SessionMetadata - элемент списка GET /stories.
type SessionMetadata struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	CurrentTurnNumber int       `json:"currentTurnNumber"`
	BaseStoryTitle    string    `json:"baseStoryTitle"`
	IsCompleted       bool      `json:"isCompleted"`
	UpdatedAt         Timestamp `json:"updatedAt"`
	CreatedAt         Timestamp `json:"createdAt"`
}

// StoryMessage - запись истории в том виде, в котором её отдаёт бэкенд.
type StoryMessage struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Turn      int       `json:"turn"`
	Timestamp Timestamp `json:"timestamp"`
}

// SessionDetail - полный снимок сессии (GET /stories/{id}).
type SessionDetail struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	UserID            string          `json:"user_id"`
	BaseStoryID       string          `json:"base_story_id"`
	BaseStoryTitle    string          `json:"baseStoryTitle"`
	StoryTypeID       string          `json:"storyTypeId,omitempty"`
	StoryTypeName     string          `json:"storyTypeName"`
	CurrentSummary    string          `json:"currentSummary"`
	CurrentTurnNumber int             `json:"currentTurnNumber"`
	IsCompleted       bool            `json:"isCompleted"`
	StoryMessages     []StoryMessage  `json:"storyMessages"`
	LastChoices       []string        `json:"last_choices"`
	StoryContext      json.RawMessage `json:"story_context,omitempty"`
	CreatedAt         Timestamp       `json:"createdAt"`
	UpdatedAt         Timestamp       `json:"updatedAt"`
}

// StoryAction - действие игрока: либо выбор, либо произвольный ввод.
type StoryAction struct {
	Choice      *string `json:"choice,omitempty"`
	CustomInput *string `json:"customInput,omitempty"`
}

// DebugConfig - параметры генерации, передаются бэкенду как есть.
type DebugConfig struct {
	StoryModel          *string  `json:"storyModel,omitempty"`
	SummaryModel        *string  `json:"summaryModel,omitempty"`
	SystemPrompt        *string  `json:"systemPrompt,omitempty"`
	SummarySystemPrompt *string  `json:"summarySystemPrompt,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty" binding:"omitempty,gte=0,lte=1"`
}

// GenerateRequest - тело POST /generate-segment.
type GenerateRequest struct {
	StoryID           string       `json:"storyId" binding:"required"`
	UserID            string       `json:"userId" binding:"required"`
	CurrentTurnNumber int          `json:"currentTurnNumber"`
	Action            *StoryAction `json:"action"`
	DebugConfig       *DebugConfig `json:"debugConfig,omitempty"`
}

// StoryResponse - ответ POST /generate-segment.
type StoryResponse struct {
	StorySegment   string   `json:"storySegment"`
	Choices        []string `json:"choices"`
	UpdatedSummary string   `json:"updatedSummary"`
	NextTurnNumber int      `json:"nextTurnNumber"`
	StoryID        string   `json:"storyId"`
	RawResponse    *string  `json:"rawResponse,omitempty"`
	ErrorMessage   *string  `json:"errorMessage,omitempty"`
}

// StatusResponse - ответ complete/continue.
type StatusResponse struct {
	ID                string `json:"id"`
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	CurrentTurnNumber *int   `json:"currentTurnNumber,omitempty"`
}

// SummarizeRequest - тело POST /summarize.
type SummarizeRequest struct {
	StoryID string `json:"storyId" binding:"required"`
}

// SummarizeResponse - ответ POST /summarize.
type SummarizeResponse struct {
	StoryID        string `json:"storyId"`
	UpdatedSummary string `json:"updatedSummary"`
	Success        bool   `json:"success"`
}

// HealthResponse - ответ GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse - формат ошибки бэкенда.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
