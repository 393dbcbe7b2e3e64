package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"novel-client/internal/client"
	"novel-client/internal/models"
)

// ErrGenerationFailed - бэкенд ответил 2xx, но сообщил об ошибке генерации в теле ответа.
var ErrGenerationFailed = errors.New("story generation failed")

// flight - выполняющийся сетевой вызов, привязанный к конкретной сессии.
type flight struct {
	op   string
	sess *session
	from State
}

type generation struct {
	flight  *flight
	pending PendingAction
	echoID  uuid.UUID
	req     models.GenerateRequest
}

// Controller управляет одной игровой сессией: оптимистичное добавление действия игрока,
// откат по ID записи при ошибке и повтор последнего действия.
// Состояние меняется только под мьютексом, сетевые вызовы выполняются без него.
type Controller struct {
	api      client.StoryAPI
	userID   string
	gen      GenerationConfig
	validate *validator.Validate
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	sess      *session
	choices   []string
	pending   *PendingAction
	lastErr   error
	noChoices bool
	flight    *flight
	// epoch увеличивается при каждом Start/Resume, ответ устаревшего вызова не применяется.
	epoch uint64
}

// NewController создает контроллер для пользователя userID.
func NewController(api client.StoryAPI, userID string, gen GenerationConfig, logger *zap.Logger) (*Controller, error) {
	if api == nil {
		return nil, fmt.Errorf("story api cannot be nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v := newValidator()
	if err := v.Struct(gen); err != nil {
		return nil, fmt.Errorf("invalid generation config: %w", toValidationError(err))
	}

	return &Controller{
		api:      api,
		userID:   userID,
		gen:      gen,
		validate: v,
		logger:   logger.Named("SessionController").With(zap.String("user_id", userID)),
		state:    Idle,
	}, nil
}

// UserID возвращает владельца сессий контроллера.
func (c *Controller) UserID() string {
	return c.userID
}

// Start создает новую историю из шаблона и сразу генерирует первый ход.
// При ошибке создания прежняя сессия сбрасывается, контроллер возвращается в Idle.
func (c *Controller) Start(ctx context.Context, templateID string, title *string) error {
	log := c.logger.With(zap.String("template_id", templateID))

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	created, err := c.api.CreateSession(ctx, c.userID, templateID, title)

	c.mu.Lock()
	if c.epoch != epoch {
		stale := c.stale("start", "superseded by a newer start or resume")
		c.mu.Unlock()
		log.Warn("Discarding start result, superseded by a newer start or resume")
		return stale
	}
	if err != nil {
		c.replaceSession(nil)
		c.state = Idle
		c.lastErr = err
		c.mu.Unlock()
		log.Error("Failed to create story session", zap.Error(err))
		return fmt.Errorf("failed to start story: %w", err)
	}

	c.replaceSession(&session{
		storyID:    created.ID,
		title:      created.Title,
		turnNumber: created.CurrentTurnNumber,
		summary:    created.CurrentSummary,
	})
	c.state = AwaitingFirstTurn
	g := c.beginGeneration(PendingAction{
		Action:    Action{Choice: BootstrapChoice},
		Turn:      created.CurrentTurnNumber,
		Bootstrap: true,
	})
	c.mu.Unlock()

	log.Info("Story session created, generating first turn", zap.String("story_id", created.ID))
	return c.runGeneration(ctx, g)
}

// Resume загружает историю с бэкенда и полностью заменяет текущую сессию.
// Допускается во время генерации: ответ на старую сессию будет отброшен.
func (c *Controller) Resume(ctx context.Context, storyID string) error {
	log := c.logger.With(zap.String("story_id", storyID))

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	detail, err := c.api.GetSession(ctx, storyID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		log.Warn("Discarding resume result, superseded by a newer start or resume")
		return c.stale("resume", "superseded by a newer start or resume")
	}
	if err != nil {
		c.lastErr = err
		log.Error("Failed to load story session", zap.Error(err))
		return fmt.Errorf("failed to resume story %s: %w", storyID, err)
	}

	history, skipped := historyFromMessages(detail.StoryMessages)
	if skipped > 0 {
		log.Warn("Skipped story messages of unknown type", zap.Int("count", skipped))
	}
	c.replaceSession(&session{
		storyID:    detail.ID,
		title:      detail.Title,
		turnNumber: detail.CurrentTurnNumber,
		summary:    detail.CurrentSummary,
		completed:  detail.IsCompleted,
		history:    history,
	})

	switch {
	case detail.IsCompleted:
		c.choices = TerminalChoices()
		c.state = Completed
	case len(history) == 0:
		// История создана, но первый ход так и не сгенерирован: его можно запустить через Retry.
		c.pending = &PendingAction{
			Action:    Action{Choice: BootstrapChoice},
			Turn:      detail.CurrentTurnNumber,
			Bootstrap: true,
		}
		c.state = AwaitingFirstTurn
	default:
		c.choices = slices.Clone(detail.LastChoices)
		c.state = Active
		if len(c.choices) == 0 {
			c.noChoices = true
			log.Warn("Resumed story has no choices, only custom input is available",
				zap.Int("turn", detail.CurrentTurnNumber))
		}
	}

	log.Info("Story session resumed",
		zap.Int("turn", detail.CurrentTurnNumber),
		zap.Int("history_len", len(history)),
		zap.Bool("completed", detail.IsCompleted),
	)
	return nil
}

// Submit отправляет действие игрока.
// Без изменения состояния возвращает *StaleStateError (нет сессии, идет запрос, история завершена)
// или *ValidationError (некорректное действие).
func (c *Controller) Submit(ctx context.Context, action Action) error {
	c.mu.Lock()
	if err := c.checkPlayable("submit"); err != nil {
		c.mu.Unlock()
		return err
	}
	normalized, err := c.validateAction(action)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	g := c.beginGeneration(PendingAction{Action: normalized, Turn: c.sess.turnNumber})
	c.mu.Unlock()

	return c.runGeneration(ctx, g)
}

// Retry повторяет последнее неудавшееся действие с тем же номером хода.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkPlayable("retry"); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.pending == nil {
		err := c.stale("retry", "no pending action")
		c.mu.Unlock()
		return err
	}
	c.lastErr = nil
	g := c.beginGeneration(*c.pending)
	c.mu.Unlock()

	c.logger.Info("Retrying pending action",
		zap.String("story_id", g.req.StoryID),
		zap.Int("turn", g.pending.Turn),
		zap.Bool("bootstrap", g.pending.Bootstrap),
	)
	return c.runGeneration(ctx, g)
}

// Complete отмечает историю завершенной.
func (c *Controller) Complete(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkPlayable("complete"); err != nil {
		c.mu.Unlock()
		return err
	}
	f, storyID := c.beginFlight("complete")
	c.mu.Unlock()

	_, err := c.api.CompleteSession(ctx, storyID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := c.endFlight(f, storyID); stale != nil {
		return stale
	}
	if err != nil {
		c.lastErr = err
		c.logger.Error("Failed to complete story", zap.String("story_id", storyID), zap.Error(err))
		return fmt.Errorf("failed to complete story %s: %w", storyID, err)
	}

	c.sess.completed = true
	c.choices = TerminalChoices()
	c.pending = nil
	c.lastErr = nil
	c.noChoices = false
	c.state = Completed
	c.logger.Info("Story completed", zap.String("story_id", storyID), zap.Int("turn", c.sess.turnNumber))
	return nil
}

// Continue снимает отметку о завершении. Новый ход не генерируется.
func (c *Controller) Continue(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.sess == nil:
		err := c.stale("continue", "no active session")
		c.mu.Unlock()
		return err
	case c.flight != nil:
		err := c.stale("continue", "a request is already in flight")
		c.mu.Unlock()
		return err
	case !c.sess.completed:
		err := c.stale("continue", "story is not completed")
		c.mu.Unlock()
		return err
	}
	f, storyID := c.beginFlight("continue")
	c.mu.Unlock()

	status, err := c.api.ContinueSession(ctx, storyID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := c.endFlight(f, storyID); stale != nil {
		return stale
	}
	if err != nil {
		c.lastErr = err
		c.logger.Error("Failed to continue story", zap.String("story_id", storyID), zap.Error(err))
		return fmt.Errorf("failed to continue story %s: %w", storyID, err)
	}

	if status != nil && status.CurrentTurnNumber != nil {
		c.sess.turnNumber = *status.CurrentTurnNumber
	} else {
		c.logger.Warn("Continue response has no turn number, keeping local value",
			zap.String("story_id", storyID), zap.Int("turn", c.sess.turnNumber))
	}
	c.sess.completed = false
	c.choices = nil
	c.noChoices = true
	c.lastErr = nil
	c.state = Active
	c.logger.Info("Story continued", zap.String("story_id", storyID), zap.Int("turn", c.sess.turnNumber))
	return nil
}

// Summarize запрашивает новое краткое содержание и заменяет им текущее.
func (c *Controller) Summarize(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.sess == nil:
		err := c.stale("summarize", "no active session")
		c.mu.Unlock()
		return err
	case c.flight != nil:
		err := c.stale("summarize", "a request is already in flight")
		c.mu.Unlock()
		return err
	}
	f, storyID := c.beginFlight("summarize")
	c.mu.Unlock()

	resp, err := c.api.SummarizeSession(ctx, storyID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := c.endFlight(f, storyID); stale != nil {
		return stale
	}
	if err != nil {
		c.lastErr = err
		c.logger.Error("Failed to summarize story", zap.String("story_id", storyID), zap.Error(err))
		return fmt.Errorf("failed to summarize story %s: %w", storyID, err)
	}
	c.sess.summary = resp.UpdatedSummary
	c.lastErr = nil
	return nil
}

// State возвращает текущее состояние.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View возвращает копию текущего состояния.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:     c.state,
		Choices:   slices.Clone(c.choices),
		LastError: c.lastErr,
		NoChoices: c.noChoices,
		InFlight:  c.flight != nil,
	}
	if c.pending != nil {
		p := *c.pending
		v.Pending = &p
	}
	if c.sess != nil {
		v.StoryID = c.sess.storyID
		v.Title = c.sess.title
		v.TurnNumber = c.sess.turnNumber
		v.Summary = c.sess.summary
		v.Completed = c.sess.completed
		v.History = slices.Clone(c.sess.history)
	}
	return v
}

// --- внутренние методы, вызываются под c.mu ---

func (c *Controller) stale(op, reason string) *StaleStateError {
	return &StaleStateError{Op: op, State: c.state, Reason: reason}
}

func (c *Controller) checkPlayable(op string) error {
	switch {
	case c.sess == nil:
		return c.stale(op, "no active session")
	case c.flight != nil:
		return c.stale(op, "a request is already in flight")
	case c.sess.completed:
		return c.stale(op, "story is completed")
	}
	return nil
}

func (c *Controller) replaceSession(s *session) {
	c.sess = s
	c.choices = nil
	c.pending = nil
	c.lastErr = nil
	c.noChoices = false
	c.flight = nil
}

func (c *Controller) beginFlight(op string) (*flight, string) {
	f := &flight{op: op, sess: c.sess, from: c.state}
	c.flight = f
	return f, c.sess.storyID
}

// endFlight снимает флаг запроса и проверяет, что сессия не была заменена.
func (c *Controller) endFlight(f *flight, storyID string) error {
	if c.flight == f {
		c.flight = nil
	}
	if c.sess != f.sess || c.sess.storyID != storyID {
		c.logger.Warn("Discarding response for replaced session",
			zap.String("op", f.op), zap.String("story_id", storyID))
		return c.stale(f.op, "session was replaced while the request was in flight")
	}
	return nil
}

func (c *Controller) beginGeneration(p PendingAction) *generation {
	f := &flight{op: "generate", sess: c.sess, from: c.state}
	g := &generation{flight: f, pending: p}

	pending := p
	c.pending = &pending

	if !p.Bootstrap {
		rec := TurnRecord{
			ID:          uuid.New(),
			Kind:        p.Action.kind(),
			Text:        p.Action.text(),
			Turn:        p.Turn,
			Speculative: true,
		}
		c.sess.history = append(c.sess.history, rec)
		g.echoID = rec.ID
	}

	c.choices = nil
	c.noChoices = false
	c.flight = f
	c.state = Generating

	g.req = models.GenerateRequest{
		StoryID:           c.sess.storyID,
		UserID:            c.userID,
		CurrentTurnNumber: p.Turn,
		Action:            p.Action.toModel(),
		DebugConfig:       c.gen.debugConfig(),
	}
	return g
}

func (c *Controller) runGeneration(ctx context.Context, g *generation) error {
	log := c.logger.With(
		zap.String("story_id", g.req.StoryID),
		zap.Int("turn", g.pending.Turn),
		zap.Bool("bootstrap", g.pending.Bootstrap),
	)
	log.Debug("Requesting turn generation")

	resp, err := c.api.GenerateTurn(ctx, g.req)
	if err == nil {
		switch {
		case resp == nil:
			err = fmt.Errorf("%w: empty response", ErrGenerationFailed)
		case resp.ErrorMessage != nil && *resp.ErrorMessage != "":
			err = fmt.Errorf("%w: %s", ErrGenerationFailed, *resp.ErrorMessage)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if stale := c.endFlight(g.flight, g.req.StoryID); stale != nil {
		return stale
	}

	if err != nil {
		if g.echoID != uuid.Nil && !c.sess.removeRecord(g.echoID) {
			log.Warn("Speculative record not found during rollback", zap.String("record_id", g.echoID.String()))
		}
		c.lastErr = err
		c.state = g.flight.from
		log.Warn("Turn generation failed, action kept for retry", zap.Error(err))
		return fmt.Errorf("failed to generate turn %d: %w", g.pending.Turn, err)
	}

	if g.echoID != uuid.Nil {
		c.sess.confirmRecord(g.echoID)
	}
	c.sess.turnNumber = resp.NextTurnNumber
	c.sess.summary = resp.UpdatedSummary
	c.sess.history = append(c.sess.history, TurnRecord{
		ID:   uuid.New(),
		Kind: KindNarration,
		Text: resp.StorySegment,
		Turn: g.pending.Turn,
	})
	c.choices = slices.Clone(resp.Choices)
	c.noChoices = len(c.choices) == 0
	c.pending = nil
	c.lastErr = nil
	c.state = Active

	log.Info("Turn generated", zap.Int("next_turn", resp.NextTurnNumber), zap.Int("choices", len(resp.Choices)))
	return nil
}
