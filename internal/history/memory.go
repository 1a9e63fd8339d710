package history

import (
	"context"
	"sync"
)

// maxTurnsPerConversation bounds memory growth for long-lived processes;
// older turns are discarded first.
const maxTurnsPerConversation = 200

// MemoryRecorder is the default recorder. Safe for concurrent use.
type MemoryRecorder struct {
	mu    sync.Mutex
	turns map[string][]Turn
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{turns: map[string][]Turn{}}
}

func (r *MemoryRecorder) Record(_ context.Context, turn Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.turns[turn.ConversationID]
	existing = append(existing, turn)
	if len(existing) > maxTurnsPerConversation {
		existing = existing[len(existing)-maxTurnsPerConversation:]
	}
	r.turns[turn.ConversationID] = existing
	return nil
}

func (r *MemoryRecorder) ListTurns(_ context.Context, conversationID string) ([]Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.turns[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Turn, len(existing))
	copy(out, existing)
	return out, nil
}
