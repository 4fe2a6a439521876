package ai

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/redis"
)

// budgetCounterName is the daily counter key shared by all providers.
const budgetCounterName = "ai_calls"

// Budget caps AI calls per calendar day. The authoritative count lives
// in redis so restarts and parallel runs share one cap; when redis is
// disabled the in-process counter takes over. A fresh Budget is created
// per pipeline run and passed by reference, never held as a global.
type Budget struct {
	limit   int
	counter *redis.DailyCounter
	local   atomic.Int64
	used    atomic.Int64
}

// NewBudget creates a budget with the given daily call limit. A zero
// or negative limit disables AI entirely. counter may be nil.
func NewBudget(limit int, counter *redis.DailyCounter) *Budget {
	return &Budget{limit: limit, counter: counter}
}

// Acquire consumes one call from the budget. It returns
// ErrBudgetExhausted once the daily limit is reached.
func (b *Budget) Acquire(ctx context.Context) error {
	if b.limit <= 0 {
		return fmt.Errorf("ai disabled: %w", contracts.ErrBudgetExhausted)
	}

	if b.counter != nil {
		n, err := b.counter.Incr(ctx, budgetCounterName)
		if err == nil && n > 0 {
			if n > int64(b.limit) {
				return fmt.Errorf("%d/%d calls today: %w", n, b.limit, contracts.ErrBudgetExhausted)
			}
			b.used.Add(1)
			return nil
		}
		// redis disabled or unreachable: fall back to the local count
	}

	n := b.local.Add(1)
	if n > int64(b.limit) {
		return fmt.Errorf("%d/%d calls today: %w", n, b.limit, contracts.ErrBudgetExhausted)
	}
	b.used.Add(1)
	return nil
}

// Used returns the number of calls this budget instance has granted.
func (b *Budget) Used() int64 {
	return b.used.Load()
}
