package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader - заголовок корреляции запросов.
const RequestIDHeader = "X-Request-ID"

// Request описывает один вызов бэкенда.
type Request struct {
	Method string
	// Path относительно базового URL, уже экранированный, например "/stories/42".
	// Идентификаторы подставляются через escapeSegment.
	Path  string
	Query url.Values
	// Body кодируется в JSON и отправляется только для POST/PUT/PATCH.
	Body any
	Auth Authenticator
	// Route - шаблон пути для метрик ("/stories/{id}"). Если пуст, используется Path.
	Route string
}

// Result - успешный (2xx) ответ.
type Result struct {
	StatusCode int
	// Payload - тело ответа, если оно валидный JSON.
	Payload json.RawMessage
	// Empty - ответ без содержимого (204).
	Empty bool
	// Lenient - тело 2xx ответа не разобралось как JSON, Payload == nil.
	Lenient bool
}

// APIClient - единая точка обращения к REST API историй.
// Не делает повторов, не кеширует и не объединяет запросы.
type APIClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

// NewAPIClient создает клиент. metrics может быть nil.
func NewAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics *Metrics) (*APIClient, error) {
	parsed, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL for story API: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL for story API: unsupported scheme %q", parsed.Scheme)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &APIClient{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger.Named("APIClient"),
		metrics: metrics,
	}, nil
}

// BaseURL возвращает настроенный базовый URL.
func (c *APIClient) BaseURL() string {
	return c.baseURL.String()
}

// Do выполняет запрос и классифицирует ответ.
// Ошибки: *TransportError, *HTTPError, ErrUnsupportedMethod.
func (c *APIClient) Do(ctx context.Context, r Request) (*Result, error) {
	method := strings.ToUpper(r.Method)
	if !isSupportedMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, r.Method)
	}

	target := c.resolve(r.Path, r.Query)
	route := r.Route
	if route == "" {
		route = r.Path
	}
	requestID := uuid.NewString()
	log := c.logger.With(
		zap.String("method", method),
		zap.String("url", target),
		zap.String("request_id", requestID),
	)

	var bodyReader io.Reader
	if methodHasBody(method) && r.Body != nil {
		bodyBytes, err := json.Marshal(r.Body)
		if err != nil {
			log.Error("Failed to marshal request body", zap.Error(err))
			return nil, fmt.Errorf("internal error marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		log.Error("Failed to create HTTP request", zap.Error(err))
		c.metrics.observe(method, route, outcomeTransportError, 0)
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Auth != nil {
		r.Auth.Authorize(req)
	}

	start := time.Now()
	log.Debug("Sending request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		elapsed := time.Since(start)
		c.metrics.observe(method, route, outcomeTransportError, elapsed)
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("Request timed out", zap.Duration("elapsed", elapsed), zap.Error(err))
		} else {
			log.Error("HTTP request failed", zap.Error(err))
		}
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		log.Error("Failed to read response body", zap.Int("status", resp.StatusCode), zap.Error(err))
		c.metrics.observe(method, route, outcomeTransportError, elapsed)
		return nil, &TransportError{Method: method, URL: target, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		httpErr := newHTTPError(method, target, resp.StatusCode, respBody)
		log.Warn("Received non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("message", httpErr.Message),
			zap.Duration("elapsed", elapsed),
		)
		c.metrics.observe(method, route, outcomeHTTPError, elapsed)
		return nil, httpErr
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		log.Debug("Received empty response", zap.Duration("elapsed", elapsed))
		c.metrics.observe(method, route, outcomeEmpty, elapsed)
		return &Result{StatusCode: resp.StatusCode, Empty: true}, nil
	}

	if !json.Valid(respBody) {
		log.Warn("Response body is not valid JSON, returning empty payload",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_size", len(respBody)),
		)
		c.metrics.observe(method, route, outcomeDecodeLenient, elapsed)
		return &Result{StatusCode: resp.StatusCode, Lenient: true}, nil
	}

	log.Debug("Request succeeded", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", elapsed))
	c.metrics.observe(method, route, outcomeSuccess, elapsed)
	return &Result{StatusCode: resp.StatusCode, Payload: json.RawMessage(respBody)}, nil
}

// DoJSON выполняет запрос и декодирует тело ответа в out.
// Если out != nil, а ответ пустой или не JSON, возвращается ErrNoPayload.
func (c *APIClient) DoJSON(ctx context.Context, r Request, out any) error {
	res, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if res.Payload == nil {
		return fmt.Errorf("%s %s: %w", strings.ToUpper(r.Method), r.Path, ErrNoPayload)
	}
	if err := json.Unmarshal(res.Payload, out); err != nil {
		return fmt.Errorf("invalid response format for %s %s: %w", strings.ToUpper(r.Method), r.Path, err)
	}
	return nil
}

func (c *APIClient) resolve(path string, query url.Values) string {
	u := *c.baseURL
	escaped := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		unescaped = escaped
	}
	u.Path = unescaped
	u.RawPath = escaped
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	} else {
		u.RawQuery = ""
	}
	return u.String()
}

// escapeSegment кодирует id как один сегмент пути: "/" и ".." не меняют маршрут.
func escapeSegment(id string) string {
	if id == "." || id == ".." {
		return strings.ReplaceAll(id, ".", "%2E")
	}
	return url.PathEscape(id)
}

func isSupportedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func methodHasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}
