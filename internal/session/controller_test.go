package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"novel-client/internal/client"
	"novel-client/internal/client/mocks"
	"novel-client/internal/models"
	"novel-client/internal/session"
)

const (
	testUserID  = "user-1"
	testStoryID = "story-1"
)

func turnIs(turn int) any {
	return mock.MatchedBy(func(r models.GenerateRequest) bool { return r.CurrentTurnNumber == turn })
}

func newController(t *testing.T, gen session.GenerationConfig) (*session.Controller, *mocks.StoryAPI) {
	t.Helper()
	api := new(mocks.StoryAPI)
	c, err := session.NewController(api, testUserID, gen, zap.NewNop())
	require.NoError(t, err)
	return c, api
}

// startedController возвращает контроллер после успешного первого хода:
// ход 1, варианты A, B, C.
func startedController(t *testing.T) (*session.Controller, *mocks.StoryAPI) {
	t.Helper()
	c, api := newController(t, session.GenerationConfig{})

	api.On("CreateSession", mock.Anything, testUserID, "tpl-1", (*string)(nil)).
		Return(&models.CreatedSession{ID: testStoryID, Title: "The Tale", CurrentTurnNumber: 0, CurrentSummary: "Once upon a time"}, nil).Once()
	api.On("GenerateTurn", mock.Anything, turnIs(0)).
		Return(&models.StoryResponse{
			StorySegment:   "You wake up in a forest.",
			Choices:        []string{"A", "B", "C"},
			UpdatedSummary: "Once upon a time",
			NextTurnNumber: 1,
			StoryID:        testStoryID,
		}, nil).Once()

	require.NoError(t, c.Start(context.Background(), "tpl-1", nil))
	return c, api
}

func TestNewController_Validation(t *testing.T) {
	api := new(mocks.StoryAPI)

	_, err := session.NewController(nil, testUserID, session.GenerationConfig{}, nil)
	assert.Error(t, err)

	_, err = session.NewController(api, "  ", session.GenerationConfig{}, nil)
	assert.Error(t, err)

	tooHot := 1.5
	_, err = session.NewController(api, testUserID, session.GenerationConfig{Temperature: &tooHot}, nil)
	assert.ErrorIs(t, err, session.ErrValidation)

	ok := 0.0
	_, err = session.NewController(api, testUserID, session.GenerationConfig{Temperature: &ok}, nil)
	assert.NoError(t, err)
}

func TestStart_BootstrapWithoutEcho(t *testing.T) {
	c, api := newController(t, session.GenerationConfig{})

	api.On("CreateSession", mock.Anything, testUserID, "tpl-1", (*string)(nil)).
		Return(&models.CreatedSession{ID: testStoryID, CurrentTurnNumber: 0, CurrentSummary: "s0"}, nil).Once()
	api.On("GenerateTurn", mock.Anything, mock.MatchedBy(func(r models.GenerateRequest) bool {
		return r.StoryID == testStoryID &&
			r.UserID == testUserID &&
			r.CurrentTurnNumber == 0 &&
			r.Action != nil && r.Action.Choice != nil && *r.Action.Choice == session.BootstrapChoice &&
			r.Action.CustomInput == nil &&
			r.DebugConfig == nil
	})).Return(&models.StoryResponse{StorySegment: "Intro", Choices: []string{"A", "B", "C"}, UpdatedSummary: "s0", NextTurnNumber: 1}, nil).Once()

	require.NoError(t, c.Start(context.Background(), "tpl-1", nil))

	v := c.View()
	assert.Equal(t, session.Active, v.State)
	assert.Equal(t, testStoryID, v.StoryID)
	assert.Equal(t, 1, v.TurnNumber)
	assert.Equal(t, []string{"A", "B", "C"}, v.Choices)
	require.Len(t, v.History, 1, "у первого хода нет эхо-записи")
	assert.Equal(t, session.KindNarration, v.History[0].Kind)
	assert.Equal(t, "Intro", v.History[0].Text)
	assert.Equal(t, 0, v.History[0].Turn)
	assert.Nil(t, v.Pending)
	assert.NoError(t, v.LastError)
	api.AssertExpectations(t)
}

func TestStart_CreateFailureKeepsIdle(t *testing.T) {
	c, api := newController(t, session.GenerationConfig{})
	backendErr := &client.HTTPError{StatusCode: 404, Message: "Base story not found"}
	api.On("CreateSession", mock.Anything, testUserID, "missing", (*string)(nil)).Return(nil, backendErr).Once()

	err := c.Start(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)

	v := c.View()
	assert.Equal(t, session.Idle, v.State)
	assert.Empty(t, v.StoryID)
	assert.Equal(t, backendErr, v.LastError)
	api.AssertNotCalled(t, "GenerateTurn", mock.Anything, mock.Anything)
}

func TestStart_CreateFailureDropsPreviousSession(t *testing.T) {
	c, api := startedController(t)
	api.On("CompleteSession", mock.Anything, testStoryID).
		Return(&models.StatusResponse{ID: testStoryID, Success: true}, nil).Once()
	require.NoError(t, c.Complete(context.Background()))

	createErr := errors.New("create down")
	api.On("CreateSession", mock.Anything, testUserID, "tpl-2", (*string)(nil)).Return(nil, createErr).Once()

	err := c.Start(context.Background(), "tpl-2", nil)
	require.ErrorIs(t, err, createErr)

	v := c.View()
	assert.Equal(t, session.Idle, v.State)
	assert.Empty(t, v.StoryID)
	assert.Empty(t, v.History)
	assert.Empty(t, v.Choices)
	assert.Nil(t, v.Pending)
	assert.False(t, v.Completed)
	assert.Equal(t, createErr, v.LastError)
	assert.ErrorIs(t, c.Submit(context.Background(), session.Action{Choice: "A"}), session.ErrStaleState)
}

func TestStart_BootstrapFailureIsRetryable(t *testing.T) {
	c, api := newController(t, session.GenerationConfig{})
	netErr := &client.TransportError{Method: "POST", URL: "http://x/generate-segment", Err: errors.New("connection reset")}

	api.On("CreateSession", mock.Anything, testUserID, "tpl-1", (*string)(nil)).
		Return(&models.CreatedSession{ID: testStoryID}, nil).Once()
	api.On("GenerateTurn", mock.Anything, turnIs(0)).Return(nil, netErr).Once()

	err := c.Start(context.Background(), "tpl-1", nil)
	require.Error(t, err)

	v := c.View()
	assert.Equal(t, session.AwaitingFirstTurn, v.State)
	assert.Empty(t, v.History)
	assert.Equal(t, netErr, v.LastError)
	require.NotNil(t, v.Pending)
	assert.True(t, v.Pending.Bootstrap)
	assert.Equal(t, 0, v.Pending.Turn)

	api.On("GenerateTurn", mock.Anything, turnIs(0)).
		Return(&models.StoryResponse{StorySegment: "Intro", Choices: []string{"A"}, NextTurnNumber: 1}, nil).Once()
	require.NoError(t, c.Retry(context.Background()))

	v = c.View()
	assert.Equal(t, session.Active, v.State)
	require.Len(t, v.History, 1)
	assert.Equal(t, session.KindNarration, v.History[0].Kind)
	assert.Nil(t, v.Pending)
}

// Старт, выбор A, итоговая история: рассказ, эхо выбора, рассказ.
func TestScenario_StartThenSubmit(t *testing.T) {
	c, api := startedController(t)

	api.On("GenerateTurn", mock.Anything, mock.MatchedBy(func(r models.GenerateRequest) bool {
		return r.CurrentTurnNumber == 1 && r.Action.Choice != nil && *r.Action.Choice == "A"
	})).Return(&models.StoryResponse{
		StorySegment:   "You go left.",
		Choices:        []string{"D", "E"},
		UpdatedSummary: "A forest walk",
		NextTurnNumber: 2,
	}, nil).Once()

	require.NoError(t, c.Submit(context.Background(), session.Action{Choice: "A"}))

	v := c.View()
	assert.Equal(t, 2, v.TurnNumber)
	assert.Equal(t, "A forest walk", v.Summary)
	assert.Equal(t, []string{"D", "E"}, v.Choices)
	require.Len(t, v.History, 3)
	assert.Equal(t, session.KindNarration, v.History[0].Kind)
	assert.Equal(t, session.KindPlayerChoice, v.History[1].Kind)
	assert.Equal(t, "A", v.History[1].Text)
	assert.Equal(t, 1, v.History[1].Turn)
	assert.False(t, v.History[1].Speculative)
	assert.Equal(t, session.KindNarration, v.History[2].Kind)
	assert.Equal(t, "You go left.", v.History[2].Text)
	assert.Nil(t, v.Pending)
	api.AssertExpectations(t)
}

func TestSubmit_TurnNumberComesFromBackend(t *testing.T) {
	c, api := startedController(t)

	// Бэкенд может вернуть любой номер, клиент его не вычисляет
	api.On("GenerateTurn", mock.Anything, turnIs(1)).
		Return(&models.StoryResponse{StorySegment: "x", Choices: []string{"Z"}, NextTurnNumber: 7}, nil).Once()

	require.NoError(t, c.Submit(context.Background(), session.Action{CustomInput: "  look around  "}))
	v := c.View()
	assert.Equal(t, 7, v.TurnNumber)
	assert.Equal(t, session.KindPlayerCustomInput, v.History[1].Kind)
	assert.Equal(t, "look around", v.History[1].Text)
}

// Ошибка сети: история откатывается, ошибка сохраняется, Retry отправляет тот же запрос.
func TestScenario_FailureRollbackAndRetry(t *testing.T) {
	c, api := startedController(t)
	before := c.View()

	var sent []models.GenerateRequest
	capture := func(args mock.Arguments) { sent = append(sent, args.Get(1).(models.GenerateRequest)) }
	netErr := &client.TransportError{Method: "POST", URL: "http://x/generate-segment", Err: context.DeadlineExceeded}

	api.On("GenerateTurn", mock.Anything, turnIs(1)).Run(capture).Return(nil, netErr).Once()

	err := c.Submit(context.Background(), session.Action{Choice: "B"})
	require.Error(t, err)
	var tErr *client.TransportError
	assert.True(t, errors.As(err, &tErr))

	v := c.View()
	assert.Equal(t, session.Active, v.State)
	assert.Len(t, v.History, len(before.History))
	assert.Equal(t, before.History, v.History)
	assert.Equal(t, netErr, v.LastError)
	assert.Empty(t, v.Choices)
	require.NotNil(t, v.Pending)
	assert.Equal(t, session.PendingAction{Action: session.Action{Choice: "B"}, Turn: 1}, *v.Pending)
	assert.Equal(t, 1, v.TurnNumber)

	api.On("GenerateTurn", mock.Anything, turnIs(1)).Run(capture).
		Return(&models.StoryResponse{StorySegment: "You go right.", Choices: []string{"F"}, NextTurnNumber: 2}, nil).Once()

	require.NoError(t, c.Retry(context.Background()))
	require.Len(t, sent, 2)
	assert.Equal(t, sent[0], sent[1], "повтор должен отправить тот же запрос")

	v = c.View()
	assert.Equal(t, 2, v.TurnNumber)
	require.Len(t, v.History, 3)
	assert.Equal(t, "B", v.History[1].Text)
	assert.NoError(t, v.LastError)
	assert.Nil(t, v.Pending)
}

// Повтор отправляет сохраненную пару (действие, ход), даже если между ошибкой и Retry
// менялось другое состояние сессии.
func TestRetry_SameRequestAfterUnrelatedChange(t *testing.T) {
	c, api := startedController(t)

	var sent []models.GenerateRequest
	capture := func(args mock.Arguments) { sent = append(sent, args.Get(1).(models.GenerateRequest)) }
	api.On("GenerateTurn", mock.Anything, turnIs(1)).Run(capture).Return(nil, errors.New("boom")).Once()
	require.Error(t, c.Submit(context.Background(), session.Action{CustomInput: "climb the tree"}))

	api.On("SummarizeSession", mock.Anything, testStoryID).
		Return(&models.SummarizeResponse{StoryID: testStoryID, UpdatedSummary: "A new summary", Success: true}, nil).Once()
	require.NoError(t, c.Summarize(context.Background()))

	v := c.View()
	assert.Equal(t, "A new summary", v.Summary)
	require.NotNil(t, v.Pending)
	assert.Equal(t, session.PendingAction{Action: session.Action{CustomInput: "climb the tree"}, Turn: 1}, *v.Pending)

	api.On("GenerateTurn", mock.Anything, turnIs(1)).Run(capture).
		Return(&models.StoryResponse{StorySegment: "You climb.", Choices: []string{"Jump"}, NextTurnNumber: 2}, nil).Once()
	require.NoError(t, c.Retry(context.Background()))

	require.Len(t, sent, 2)
	assert.Equal(t, sent[0], sent[1])
	require.NotNil(t, sent[1].Action.CustomInput)
	assert.Equal(t, "climb the tree", *sent[1].Action.CustomInput)
	assert.Equal(t, 2, c.View().TurnNumber)
	api.AssertExpectations(t)
}

func TestSubmit_WhileInFlight(t *testing.T) {
	c, api := startedController(t)

	release := make(chan struct{})
	api.On("GenerateTurn", mock.Anything, turnIs(1)).
		Run(func(mock.Arguments) { <-release }).
		Return(&models.StoryResponse{StorySegment: "slow", Choices: []string{"X"}, NextTurnNumber: 2}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Submit(context.Background(), session.Action{Choice: "A"}))
	}()

	require.Eventually(t, func() bool { return c.View().InFlight }, time.Second, 5*time.Millisecond)
	during := c.View()
	assert.Equal(t, session.Generating, during.State)

	err := c.Submit(context.Background(), session.Action{CustomInput: "something else"})
	var stale *session.StaleStateError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, "submit", stale.Op)

	assert.ErrorIs(t, c.Retry(context.Background()), session.ErrStaleState)
	assert.ErrorIs(t, c.Complete(context.Background()), session.ErrStaleState)
	assert.ErrorIs(t, c.Summarize(context.Background()), session.ErrStaleState)
	assert.Equal(t, during, c.View(), "отклоненные вызовы не меняют состояние")

	close(release)
	wg.Wait()

	api.AssertNumberOfCalls(t, "GenerateTurn", 2)
	assert.Equal(t, 2, c.View().TurnNumber)
}

func TestSubmit_Validation(t *testing.T) {
	long := strings.Repeat("ы", models.MaxCustomInputLength+1)
	exact := strings.Repeat("ы", models.MaxCustomInputLength)

	tests := []struct {
		name   string
		action session.Action
		field  string
	}{
		{"neither", session.Action{}, ""},
		{"both", session.Action{Choice: "A", CustomInput: "hi"}, ""},
		{"blank custom input", session.Action{CustomInput: "   \t "}, ""},
		{"unknown choice", session.Action{Choice: "Q"}, "choice"},
		{"too long", session.Action{CustomInput: long}, "customInput"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api := startedController(t)
			before := c.View()

			err := c.Submit(context.Background(), tt.action)
			var vErr *session.ValidationError
			require.True(t, errors.As(err, &vErr), "ожидалась ошибка валидации, получено %v", err)
			assert.Equal(t, tt.field, vErr.Field)

			assert.Equal(t, before, c.View())
			assert.Nil(t, c.View().Pending)
			api.AssertNumberOfCalls(t, "GenerateTurn", 1)
		})
	}

	t.Run("exactly max length", func(t *testing.T) {
		c, api := startedController(t)
		api.On("GenerateTurn", mock.Anything, turnIs(1)).
			Return(&models.StoryResponse{StorySegment: "ok", Choices: []string{"A"}, NextTurnNumber: 2}, nil).Once()
		assert.NoError(t, c.Submit(context.Background(), session.Action{CustomInput: exact}))
	})
}

func TestSubmit_TooLongAfterFailureKeepsPending(t *testing.T) {
	c, api := startedController(t)
	api.On("GenerateTurn", mock.Anything, turnIs(1)).Return(nil, errors.New("boom")).Once()
	require.Error(t, c.Submit(context.Background(), session.Action{Choice: "C"}))

	long := strings.Repeat("x", models.MaxCustomInputLength+1)
	// После ошибки вариантов нет, поэтому выбор невозможен, а длинный ввод отклоняется
	assert.ErrorIs(t, c.Submit(context.Background(), session.Action{CustomInput: long}), session.ErrValidation)

	v := c.View()
	require.NotNil(t, v.Pending)
	assert.Equal(t, "C", v.Pending.Action.Choice)
}

func TestSubmit_WithoutSession(t *testing.T) {
	c, api := newController(t, session.GenerationConfig{})

	assert.ErrorIs(t, c.Submit(context.Background(), session.Action{Choice: "A"}), session.ErrStaleState)
	assert.ErrorIs(t, c.Retry(context.Background()), session.ErrStaleState)
	assert.ErrorIs(t, c.Complete(context.Background()), session.ErrStaleState)
	assert.ErrorIs(t, c.Continue(context.Background()), session.ErrStaleState)
	assert.ErrorIs(t, c.Summarize(context.Background()), session.ErrStaleState)
	assert.Equal(t, session.Idle, c.View().State)
	api.AssertExpectations(t)
}

func TestRetry_WithoutPending(t *testing.T) {
	c, _ := startedController(t)

	err := c.Retry(context.Background())
	var stale *session.StaleStateError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, "retry", stale.Op)
}

func TestCompleteThenContinue(t *testing.T) {
	c, api := startedController(t)
	history := c.View().History

	api.On("CompleteSession", mock.Anything, testStoryID).
		Return(&models.StatusResponse{ID: testStoryID, Success: true}, nil).Once()
	require.NoError(t, c.Complete(context.Background()))

	v := c.View()
	assert.Equal(t, session.Completed, v.State)
	assert.True(t, v.Completed)
	assert.Equal(t, []string{session.ChoiceReturnToSelection, session.ChoiceStartNewStory}, v.Choices)
	assert.Equal(t, history, v.History, "завершение не добавляет рассказ")

	// Завершенная история не принимает действия
	assert.ErrorIs(t, c.Submit(context.Background(), session.Action{Choice: session.ChoiceStartNewStory}), session.ErrStaleState)
	assert.ErrorIs(t, c.Complete(context.Background()), session.ErrStaleState)

	turn := 1
	api.On("ContinueSession", mock.Anything, testStoryID).
		Return(&models.StatusResponse{ID: testStoryID, Success: true, CurrentTurnNumber: &turn}, nil).Once()
	require.NoError(t, c.Continue(context.Background()))

	v = c.View()
	assert.Equal(t, session.Active, v.State)
	assert.False(t, v.Completed)
	assert.Empty(t, v.Choices)
	assert.True(t, v.NoChoices)
	assert.Equal(t, history, v.History)
	assert.Equal(t, 1, v.TurnNumber)

	assert.ErrorIs(t, c.Continue(context.Background()), session.ErrStaleState)
	api.AssertNotCalled(t, "GenerateTurn", mock.Anything, turnIs(1))
}

func TestComplete_FailureKeepsState(t *testing.T) {
	c, api := startedController(t)
	api.On("CompleteSession", mock.Anything, testStoryID).Return(nil, errors.New("down")).Once()

	require.Error(t, c.Complete(context.Background()))
	v := c.View()
	assert.Equal(t, session.Active, v.State)
	assert.False(t, v.Completed)
	assert.Equal(t, []string{"A", "B", "C"}, v.Choices)
	assert.EqualError(t, v.LastError, "down")
}

func TestContinue_UsesBackendTurn(t *testing.T) {
	c, api := startedController(t)
	api.On("CompleteSession", mock.Anything, testStoryID).Return(&models.StatusResponse{Success: true}, nil).Once()
	require.NoError(t, c.Complete(context.Background()))

	turn := 9
	api.On("ContinueSession", mock.Anything, testStoryID).
		Return(&models.StatusResponse{Success: true, CurrentTurnNumber: &turn}, nil).Once()
	require.NoError(t, c.Continue(context.Background()))
	assert.Equal(t, 9, c.View().TurnNumber)

	api.On("GenerateTurn", mock.Anything, turnIs(9)).
		Return(&models.StoryResponse{StorySegment: "Epilogue", Choices: []string{"A"}, NextTurnNumber: 10}, nil).Once()
	require.NoError(t, c.Submit(context.Background(), session.Action{CustomInput: "keep going"}))
	assert.Equal(t, 10, c.View().TurnNumber)
}

func TestSummarize(t *testing.T) {
	c, api := startedController(t)
	api.On("SummarizeSession", mock.Anything, testStoryID).
		Return(&models.SummarizeResponse{StoryID: testStoryID, UpdatedSummary: "A short recap", Success: true}, nil).Once()

	require.NoError(t, c.Summarize(context.Background()))
	assert.Equal(t, "A short recap", c.View().Summary)
}

func TestGenerationConfigForwarded(t *testing.T) {
	temp := 0.2
	gen := session.GenerationConfig{
		StoryModel:   "story-model",
		SummaryModel: "summary-model",
		Temperature:  &temp,
		SystemPrompt: "You are a narrator",
	}
	c, api := newController(t, gen)

	api.On("CreateSession", mock.Anything, testUserID, "tpl-1", mock.Anything).
		Return(&models.CreatedSession{ID: testStoryID}, nil).Once()
	api.On("GenerateTurn", mock.Anything, mock.MatchedBy(func(r models.GenerateRequest) bool {
		dc := r.DebugConfig
		return dc != nil &&
			dc.StoryModel != nil && *dc.StoryModel == "story-model" &&
			dc.SummaryModel != nil && *dc.SummaryModel == "summary-model" &&
			dc.Temperature != nil && *dc.Temperature == 0.2 &&
			dc.SystemPrompt != nil && *dc.SystemPrompt == "You are a narrator" &&
			dc.SummarySystemPrompt == nil
	})).Return(&models.StoryResponse{StorySegment: "Intro", NextTurnNumber: 1}, nil).Once()

	title := "My tale"
	require.NoError(t, c.Start(context.Background(), "tpl-1", &title))
	assert.True(t, c.View().NoChoices)
	api.AssertExpectations(t)
}

func TestGenerateTurn_ErrorMessageInBody(t *testing.T) {
	c, api := startedController(t)
	msg := "LLM response issue"
	api.On("GenerateTurn", mock.Anything, turnIs(1)).
		Return(&models.StoryResponse{ErrorMessage: &msg}, nil).Once()

	err := c.Submit(context.Background(), session.Action{Choice: "A"})
	assert.ErrorIs(t, err, session.ErrGenerationFailed)
	assert.Len(t, c.View().History, 1)
	assert.Equal(t, 1, c.View().TurnNumber)
}
