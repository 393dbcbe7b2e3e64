package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novel-client/internal/session"
)

func TestParseInput(t *testing.T) {
	choices := []string{"Go left", "Go right"}

	tests := []struct {
		name    string
		line    string
		want    Input
		wantErr bool
	}{
		{name: "choice number", line: "2", want: Input{Action: &session.Action{Choice: "Go right"}}},
		{name: "custom action", line: "  climb the tree ", want: Input{Action: &session.Action{CustomInput: "climb the tree"}}},
		{name: "command", line: "/Retry", want: Input{Command: CommandRetry}},
		{name: "out of range", line: "3", wantErr: true},
		{name: "zero", line: "0", wantErr: true},
		{name: "unknown command", line: "/dance", wantErr: true},
		{name: "empty", line: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.line, choices)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderView_PrintsOnlyNewRecords(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out, true)

	first := session.TurnRecord{ID: uuid.New(), Kind: session.KindNarration, Text: "Once upon a time"}
	v := session.View{
		State:      session.Active,
		StoryID:    "s-1",
		Title:      "The Fox",
		TurnNumber: 1,
		History:    []session.TurnRecord{first},
		Choices:    []string{"Follow", "Flee"},
	}
	c.RenderView(v)
	assert.Contains(t, out.String(), "== The Fox (turn 1) ==")
	assert.Contains(t, out.String(), "Once upon a time")
	assert.Contains(t, out.String(), "  1. Follow")

	out.Reset()
	echo := session.TurnRecord{ID: uuid.New(), Kind: session.KindPlayerChoice, Text: "Follow"}
	pending := session.TurnRecord{ID: uuid.New(), Kind: session.KindPlayerCustomInput, Text: "hidden", Speculative: true}
	v.History = []session.TurnRecord{first, echo, pending}
	v.Choices = nil
	v.LastError = errors.New("connection refused")
	v.Pending = &session.PendingAction{Action: session.Action{Choice: "Follow"}, Turn: 1}
	c.RenderView(v)

	got := out.String()
	assert.NotContains(t, got, "Once upon a time")
	assert.NotContains(t, got, "== The Fox")
	assert.NotContains(t, got, "hidden")
	assert.Contains(t, got, "> Follow")
	assert.Contains(t, got, "Error: connection refused")
	assert.Contains(t, got, "/retry")
}

func TestRenderView_CompletedAndNoChoices(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out, true)

	c.RenderView(session.View{State: session.Completed, StoryID: "s", Completed: true, Choices: session.TerminalChoices()})
	assert.Contains(t, out.String(), "The story is complete.")
	assert.Contains(t, out.String(), session.ChoiceStartNewStory)

	out.Reset()
	c.RenderView(session.View{State: session.Active, StoryID: "s", NoChoices: true})
	assert.Contains(t, out.String(), "No choices available")
}

func TestConfirm(t *testing.T) {
	t.Run("assume yes", func(t *testing.T) {
		var out bytes.Buffer
		c := New(strings.NewReader(""), &out, true)
		ok, err := c.Confirm("Delete?", true)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, out.String())
	})
	t.Run("answers", func(t *testing.T) {
		c := New(strings.NewReader("yes\nn\n"), &bytes.Buffer{}, true)
		ok, err := c.Confirm("Delete?", false)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = c.Confirm("Delete?", false)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = c.Confirm("Delete?", false)
		assert.ErrorIs(t, err, ErrInputClosed)
	})
}

func TestReadInput(t *testing.T) {
	c := New(strings.NewReader("1\n/quit\n"), &bytes.Buffer{}, true)
	in, err := c.ReadInput([]string{"Only"})
	require.NoError(t, err)
	require.NotNil(t, in.Action)
	assert.Equal(t, "Only", in.Action.Choice)

	in, err = c.ReadInput(nil)
	require.NoError(t, err)
	assert.Equal(t, CommandQuit, in.Command)
}
