package session

import (
	"strings"

	"github.com/google/uuid"

	"novel-client/internal/models"
)

// Префиксы, с которыми бэкенд сохраняет действия игрока.
const (
	choicePrefix       = "My choice: "
	customActionPrefix = "My custom action: "
)

func kindFromMessageType(t string) (RecordKind, bool) {
	switch t {
	case models.MessageTypeStory:
		return KindNarration, true
	case models.MessageTypeChoice:
		return KindPlayerChoice, true
	case models.MessageTypeUserInput:
		return KindPlayerCustomInput, true
	}
	return "", false
}

// historyFromMessages строит историю из сообщений бэкенда.
// Неизвестные типы пропускаются, second return - их количество.
func historyFromMessages(msgs []models.StoryMessage) ([]TurnRecord, int) {
	history := make([]TurnRecord, 0, len(msgs))
	skipped := 0
	for _, m := range msgs {
		kind, ok := kindFromMessageType(m.Type)
		if !ok {
			skipped++
			continue
		}
		text := m.Content
		switch kind {
		case KindPlayerChoice:
			text = strings.TrimPrefix(text, choicePrefix)
		case KindPlayerCustomInput:
			text = strings.TrimPrefix(text, customActionPrefix)
		}
		history = append(history, TurnRecord{
			ID:   uuid.New(),
			Kind: kind,
			Text: text,
			Turn: m.Turn,
		})
	}
	return history, skipped
}
