package usecase

import "roomscribe/internal/domain"

// messageLog is append-only and keyed by message id.
type messageLog struct {
	seen  map[string]struct{}
	items []domain.Message
}

func newMessageLog() *messageLog {
	return &messageLog{seen: make(map[string]struct{})}
}

// Append reports false when a message with the same id is already present.
func (l *messageLog) Append(message domain.Message) bool {
	if _, ok := l.seen[message.ID]; ok {
		return false
	}
	l.seen[message.ID] = struct{}{}
	l.items = append(l.items, message)
	return true
}

func (l *messageLog) Reset() {
	l.seen = make(map[string]struct{})
	l.items = nil
}

func (l *messageLog) Len() int { return len(l.items) }

func (l *messageLog) Snapshot() []domain.Message {
	out := make([]domain.Message, len(l.items))
	copy(out, l.items)
	return out
}
