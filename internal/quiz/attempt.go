package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Attempt is the stored summary of a completed session.
type Attempt struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	ClientID    string    `json:"-"`
	Topic       string    `json:"topic"`
	Difficulty  string    `json:"difficulty"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

// Percent returns the score as a percentage.
func (a Attempt) Percent() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Score) * 100 / float64(a.Total)
}

// NewAttempt summarises a completed session.
func NewAttempt(sessionID, clientID string, s Session, completedAt time.Time) (Attempt, error) {
	if !s.Completed() {
		return Attempt{}, fmt.Errorf("session %s is not completed", sessionID)
	}
	score, total := s.FinalScore()
	return Attempt{
		SessionID:   sessionID,
		ClientID:    clientID,
		Topic:       s.Topic,
		Difficulty:  s.Difficulty,
		Score:       score,
		Total:       total,
		CompletedAt: completedAt,
	}, nil
}

// AttemptStore persists completed attempts.
type AttemptStore interface {
	SaveAttempt(ctx context.Context, a Attempt) (string, error)
	RecentAttempts(ctx context.Context, limit int) ([]Attempt, error)
}

// MemoryAttemptStore keeps attempts in memory.
type MemoryAttemptStore struct {
	attempts []Attempt
	mu       sync.RWMutex
}

// NewMemoryAttemptStore creates an empty in-memory store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{}
}

func (s *MemoryAttemptStore) SaveAttempt(_ context.Context, a Attempt) (string, error) {
	if a.Total <= 0 {
		return "", fmt.Errorf("attempt total must be positive, got %d", a.Total)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = generateID()
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now()
	}
	s.attempts = append(s.attempts, a)
	return a.ID, nil
}

// RecentAttempts returns up to limit attempts, newest first.
func (s *MemoryAttemptStore) RecentAttempts(_ context.Context, limit int) ([]Attempt, error) {
	s.mu.RLock()
	out := append([]Attempt(nil), s.attempts...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
