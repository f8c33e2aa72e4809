package conversation

import (
	"sync"

	"github.com/haasonsaas/sitechat/pkg/models"
)

// DefaultMaxTurns bounds the turns kept per user.
const DefaultMaxTurns = 50

// History keeps each user's recent turns in memory. Appends for one user are
// atomic with respect to each other.
type History struct {
	mu       sync.Mutex
	maxTurns int
	turns    map[int64][]models.Turn
}

// NewHistory returns an empty history keeping at most maxTurns per user
// (default DefaultMaxTurns).
func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &History{maxTurns: maxTurns, turns: map[int64][]models.Turn{}}
}

// Ensure creates an empty history for user if none exists.
func (h *History) Ensure(user int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.turns[user]; !ok {
		h.turns[user] = []models.Turn{}
	}
}

// Append records a turn, dropping the oldest once the limit is reached.
func (h *History) Append(user int64, turn models.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := append(h.turns[user], turn)
	if over := len(turns) - h.maxTurns; over > 0 {
		turns = append([]models.Turn(nil), turns[over:]...)
	}
	h.turns[user] = turns
}

// Get returns a copy of user's turns, oldest first.
func (h *History) Get(user int64) []models.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns, ok := h.turns[user]
	if !ok {
		return nil
	}
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}

// Last returns a copy of at most n of user's most recent turns.
func (h *History) Last(user int64, n int) []models.Turn {
	if n <= 0 {
		return nil
	}
	turns := h.Get(user)
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

// Reset forgets user's turns.
func (h *History) Reset(user int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.turns, user)
}

// Users returns the number of users with a history.
func (h *History) Users() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
