package ai

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// BudgetChecker checks and records token usage against per-client budgets.
type BudgetChecker interface {
	// Check returns true if the client has budget remaining today.
	Check(clientID string) (bool, error)
	// Record records token usage for a client.
	Record(clientID string, tokens int) error
	// Usage returns today's usage and limit for a client. A zero limit
	// means unlimited.
	Usage(clientID string) (used int64, budget int64, err error)
}

// InMemoryBudget tracks daily token usage per client in memory. Usage
// resets at midnight UTC.
type InMemoryBudget struct {
	mu       sync.Mutex
	dailyCap int64            // default limit, 0 = unlimited
	budgets  map[string]int64 // key -> budget override
	usage    map[string]int64 // key -> tokens used today
	day      string
	now      func() time.Time
}

// NewInMemoryBudget creates a tracker with a default daily limit per
// client. A limit of zero means unlimited.
func NewInMemoryBudget(dailyLimit int64) *InMemoryBudget {
	return &InMemoryBudget{
		dailyCap: dailyLimit,
		budgets:  make(map[string]int64),
		usage:    make(map[string]int64),
		now:      time.Now,
	}
}

// SetBudget overrides the daily limit for one client.
func (b *InMemoryBudget) SetBudget(clientID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[budgetKey(clientID)] = tokens
}

func (b *InMemoryBudget) Check(clientID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()

	key := budgetKey(clientID)
	limit := b.limitFor(key)
	if limit <= 0 {
		return true, nil
	}
	return b.usage[key] < limit, nil
}

func (b *InMemoryBudget) Record(clientID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()

	b.usage[budgetKey(clientID)] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(clientID string) (int64, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()

	key := budgetKey(clientID)
	return b.usage[key], b.limitFor(key), nil
}

func (b *InMemoryBudget) limitFor(key string) int64 {
	if limit, ok := b.budgets[key]; ok {
		return limit
	}
	return b.dailyCap
}

// rollover clears usage when the UTC day changes. Callers hold mu.
func (b *InMemoryBudget) rollover() {
	today := b.now().UTC().Format(time.DateOnly)
	if today != b.day {
		b.day = today
		clear(b.usage)
	}
}

// budgetKey hashes client IDs so raw addresses are not held as map keys.
func budgetKey(clientID string) string {
	sum := blake2b.Sum256([]byte(clientID))
	return hex.EncodeToString(sum[:16])
}
