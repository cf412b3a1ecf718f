package storage

import (
	"context"
	"time"
)

// Exchange is one message and its reply as kept in the history slot.
type Exchange struct {
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// History returns the stored exchanges, oldest first. A missing or
// unreadable history is empty.
func (s *Slots) History(ctx context.Context) []Exchange {
	var h []Exchange
	if !s.Get(ctx, SlotHistory, &h) {
		return nil
	}
	return h
}

// AppendHistory adds e and keeps only the newest limit exchanges.
// A limit of zero disables history.
func (s *Slots) AppendHistory(ctx context.Context, e Exchange, limit int) bool {
	if limit <= 0 {
		return true
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	h := append(s.History(ctx), e)
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return s.Set(ctx, SlotHistory, h)
}
