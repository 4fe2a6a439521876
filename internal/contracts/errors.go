package contracts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for synchronous, atomic rejections.
var (
	// ErrInvalidConfig marks a weight table that fails sum-to-one
	// validation or references an unknown dimension.
	ErrInvalidConfig = errors.New("invalid weight configuration")

	// ErrInsufficientFunds rejects a buy whose amount plus commission
	// exceeds the portfolio cash balance. No state is mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares rejects a sell exceeding the held quantity.
	// No state is mutated.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrAIUnavailable is soft: AI callers catch it and fall back to the
	// degraded neutral result. It never crosses the analyzer boundary.
	ErrAIUnavailable = errors.New("ai service unavailable")

	// ErrBudgetExhausted is soft: the shared daily AI call budget is
	// spent, remaining stocks use the non-AI path.
	ErrBudgetExhausted = errors.New("ai daily budget exhausted")

	// ErrPortfolioInactive rejects trades against a deactivated
	// portfolio. Reads remain allowed.
	ErrPortfolioInactive = errors.New("portfolio inactive")

	// ErrNotFound marks a missing persisted row.
	ErrNotFound = errors.New("not found")
)

// DataUnavailableError reports that every provider failed for a query,
// carrying the per-provider failure reasons.
type DataUnavailableError struct {
	Operation string            // e.g. "fetch_kline"
	StockCode string
	Reasons   map[string]string // provider name -> failure reason
}

func (e *DataUnavailableError) Error() string {
	providers := make([]string, 0, len(e.Reasons))
	for name := range e.Reasons {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	parts := make([]string, 0, len(providers))
	for _, name := range providers {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Reasons[name]))
	}

	return fmt.Sprintf("data unavailable for %s(%s): [%s]",
		e.Operation, e.StockCode, strings.Join(parts, "; "))
}

// IsDataUnavailable reports whether err wraps a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}
