package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"novel-client/internal/models"
)

var (
	// ErrUnsupportedMethod - метод не из набора GET/POST/PUT/PATCH/DELETE.
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
	// ErrNoPayload - типизированный вызов ожидал тело ответа, а получил пустое или нечитаемое.
	ErrNoPayload = errors.New("response carried no usable payload")
)

// TransportError - запрос не завершился (сеть, DNS, таймаут, некорректный URL).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout сообщает, был ли запрос прерван по таймауту.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// HTTPError - запрос завершился со статусом не из 2xx.
// Error() возвращает сообщение сервера (поле detail), если оно было, иначе "код + reason phrase".
type HTTPError struct {
	Method        string
	URL           string
	StatusCode    int
	Status        string // "404 Not Found"
	Message       string
	ServerMessage bool // Message взят из тела ответа
}

func (e *HTTPError) Error() string { return e.Message }

// Is сопоставляет статус с общими ошибками приложения.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case models.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case models.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case models.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case models.ErrConflict:
		return e.StatusCode == http.StatusConflict
	case models.ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case models.ErrInternalServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// newHTTPError разбирает тело ошибки. Сервер (FastAPI) кладет сообщение в "detail":
// строкой или, для ошибок валидации, массивом объектов.
func newHTTPError(method, url string, statusCode int, body []byte) *HTTPError {
	reason := http.StatusText(statusCode)
	if reason == "" {
		reason = "Unknown Status"
	}
	httpErr := &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Status:     fmt.Sprintf("%d %s", statusCode, reason),
	}

	var parsed struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if msg := detailMessage(parsed.Detail); msg != "" {
			httpErr.Message = msg
			httpErr.ServerMessage = true
			return httpErr
		}
		if parsed.Message != "" {
			httpErr.Message = parsed.Message
			httpErr.ServerMessage = true
			return httpErr
		}
	}

	httpErr.Message = httpErr.Status
	return httpErr
}

func detailMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
