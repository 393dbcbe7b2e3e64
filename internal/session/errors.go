package session

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation - базовая ошибка для errors.Is(err, ErrValidation).
	ErrValidation = errors.New("invalid action")
	// ErrStaleState - операция недопустима в текущем состоянии.
	ErrStaleState = errors.New("operation not allowed in current state")
)

// ValidationError - действие отклонено до отправки, состояние не изменено.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid action: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StaleStateError - операция отклонена (нет сессии, идет генерация, история завершена)
// или ответ пришел для уже замененной сессии.
type StaleStateError struct {
	Op     string
	State  State
	Reason string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s rejected in state %s: %s", e.Op, e.State, e.Reason)
}

func (e *StaleStateError) Is(target error) bool { return target == ErrStaleState }
