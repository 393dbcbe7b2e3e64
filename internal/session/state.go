package session

import (
	"fmt"

	"github.com/google/uuid"
)

// State - состояние контроллера сессии.
type State int

const (
	Idle State = iota
	AwaitingFirstTurn
	Active
	Generating
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFirstTurn:
		return "awaiting_first_turn"
	case Active:
		return "active"
	case Generating:
		return "generating"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// RecordKind - вид записи в истории.
type RecordKind string

const (
	KindNarration         RecordKind = "narration"
	KindPlayerChoice      RecordKind = "playerChoice"
	KindPlayerCustomInput RecordKind = "playerCustomInput"
)

// TurnRecord - одна запись истории. Speculative записи (эхо действия игрока)
// добавляются до ответа бэкенда и удаляются по ID при ошибке.
type TurnRecord struct {
	ID          uuid.UUID
	Kind        RecordKind
	Text        string
	Turn        int
	Speculative bool
}

// BootstrapChoice - фиксированное действие, которым начинается каждая новая история.
const BootstrapChoice = "Begin the story"

// Варианты, которые показываются после завершения истории.
const (
	ChoiceReturnToSelection = "Return to story selection"
	ChoiceStartNewStory     = "Start a new story"
)

// TerminalChoices возвращает варианты для завершенной истории.
func TerminalChoices() []string {
	return []string{ChoiceReturnToSelection, ChoiceStartNewStory}
}

// Action - действие игрока: ровно одно из Choice и CustomInput.
type Action struct {
	Choice      string `json:"choice" validate:"required_without=CustomInput,excluded_with=CustomInput"`
	CustomInput string `json:"customInput" validate:"required_without=Choice,excluded_with=Choice,max=150"`
}

// IsCustom сообщает, является ли действие произвольным вводом.
func (a Action) IsCustom() bool {
	return a.CustomInput != ""
}

// PendingAction - последнее отправленное действие и номер хода, на котором оно отправлено.
// Сохраняется после ошибки, чтобы Retry повторил ровно тот же запрос.
type PendingAction struct {
	Action    Action
	Turn      int
	Bootstrap bool
}

// View - неизменяемый снимок состояния контроллера.
type View struct {
	State      State
	StoryID    string
	Title      string
	TurnNumber int
	Summary    string
	Completed  bool
	History    []TurnRecord
	Choices    []string
	Pending    *PendingAction
	LastError  error
	// NoChoices: у продолжающейся истории нет вариантов, доступен только произвольный ввод.
	NoChoices bool
	InFlight  bool
}

// session - данные одной истории. Контроллер сравнивает указатели,
// чтобы не применять ответы, пришедшие для замененной сессии.
type session struct {
	storyID    string
	title      string
	turnNumber int
	summary    string
	completed  bool
	history    []TurnRecord
}

func (s *session) removeRecord(id uuid.UUID) bool {
	for i := range s.history {
		if s.history[i].ID == id {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return true
		}
	}
	return false
}

func (s *session) confirmRecord(id uuid.UUID) {
	for i := range s.history {
		if s.history[i].ID == id {
			s.history[i].Speculative = false
			return
		}
	}
}
