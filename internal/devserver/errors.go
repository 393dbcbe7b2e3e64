package devserver

import (
	"errors"
	"fmt"

	"novel-client/internal/models"
)

// ErrGenerationFailed - рассказчик не смог выдать сегмент истории.
var ErrGenerationFailed = errors.New("story generation failed")

// ErrStoryConfiguration - для хода не найден системный промпт.
var ErrStoryConfiguration = errors.New("story configuration error")

// detailError несет текст для поля detail ответа и сентинел, по которому выбирается HTTP статус.
type detailError struct {
	kind   error
	detail string
}

func (e *detailError) Error() string { return e.detail }
func (e *detailError) Unwrap() error { return e.kind }

func notFound(format string, args ...any) error {
	return &detailError{kind: models.ErrNotFound, detail: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &detailError{kind: models.ErrConflict, detail: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) error {
	return &detailError{kind: models.ErrBadRequest, detail: fmt.Sprintf(format, args...)}
}
