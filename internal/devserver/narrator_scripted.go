package devserver

import (
	"context"
	"fmt"
	"strings"
)

var scriptedChoices = [][]string{
	{"Follow the glowing path", "Knock on the old oak", "Call out to the fox"},
	{"Cross the river", "Climb the hill", "Rest by the fire"},
	{"Open the wooden chest", "Read the strange letter", "Ask the owl for advice"},
}

// scriptedNarrator - детерминированный рассказчик без модели, для локальной игры и тестов.
type scriptedNarrator struct{}

func NewScriptedNarrator() Narrator {
	return scriptedNarrator{}
}

func (scriptedNarrator) Narrate(ctx context.Context, req NarrationRequest) (*Narration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	last := ""
	if len(req.History) > 0 {
		last = req.History[len(req.History)-1]
	}
	segment := fmt.Sprintf("Chapter %d. After \"%s\", the forest grows quiet and something new waits ahead.", req.Turn+1, last)
	choices := append([]string(nil), scriptedChoices[req.Turn%len(scriptedChoices)]...)
	return &Narration{StorySegment: segment, Choices: choices}, nil
}

func (scriptedNarrator) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(req.Recent) == 0 {
		return req.ExistingSummary, nil
	}
	parts := []string{}
	if req.ExistingSummary != "" {
		parts = append(parts, req.ExistingSummary)
	}
	parts = append(parts, req.Recent[len(req.Recent)-1])
	return acceptSummary(req.ExistingSummary, strings.Join(parts, " ")), nil
}
