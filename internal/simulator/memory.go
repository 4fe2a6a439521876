package simulator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// MemoryStore is a Store kept entirely in process memory.
type MemoryStore struct {
	mu          sync.Mutex
	nextID      int64
	portfolios  map[int64]contracts.Portfolio
	positions   map[int64]map[string]contracts.Position
	trades      map[int64][]contracts.Trade
	metrics     map[int64]map[time.Time]contracts.PerformanceMetric
	nextTradeID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      1,
		nextTradeID: 1,
		portfolios:  make(map[int64]contracts.Portfolio),
		positions:   make(map[int64]map[string]contracts.Position),
		trades:      make(map[int64][]contracts.Trade),
		metrics:     make(map[int64]map[time.Time]contracts.PerformanceMetric),
	}
}

func (s *MemoryStore) CreatePortfolio(ctx context.Context, name string, initialCapital float64) (contracts.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := contracts.Portfolio{
		ID:             s.nextID,
		Name:           name,
		InitialCapital: initialCapital,
		CashBalance:    initialCapital,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.nextID++
	s.portfolios[p.ID] = p
	s.positions[p.ID] = make(map[string]contracts.Position)
	s.metrics[p.ID] = make(map[time.Time]contracts.PerformanceMetric)
	return p, nil
}

func (s *MemoryStore) Portfolio(ctx context.Context, id int64) (contracts.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		return contracts.Portfolio{}, fmt.Errorf("portfolio %d: %w", id, contracts.ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) Portfolios(ctx context.Context) ([]contracts.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]contracts.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeactivatePortfolio(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		return fmt.Errorf("portfolio %d: %w", id, contracts.ErrNotFound)
	}
	p.IsActive = false
	p.UpdatedAt = time.Now()
	s.portfolios[id] = p
	return nil
}

func (s *MemoryStore) Position(ctx context.Context, portfolioID int64, code string) (contracts.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[portfolioID][code]
	if !ok {
		return contracts.Position{}, fmt.Errorf("position %d/%s: %w", portfolioID, code, contracts.ErrNotFound)
	}
	return pos, nil
}

func (s *MemoryStore) Positions(ctx context.Context, portfolioID int64) ([]contracts.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]contracts.Position, 0, len(s.positions[portfolioID]))
	for _, pos := range s.positions[portfolioID] {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockCode < out[j].StockCode })
	return out, nil
}

func (s *MemoryStore) SavePosition(ctx context.Context, pos contracts.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[pos.PortfolioID]; !ok {
		return fmt.Errorf("portfolio %d: %w", pos.PortfolioID, contracts.ErrNotFound)
	}
	s.positions[pos.PortfolioID][pos.StockCode] = pos
	return nil
}

func (s *MemoryStore) CommitTrade(ctx context.Context, commit TradeCommit) (contracts.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[commit.PortfolioID]
	if !ok {
		return contracts.Trade{}, fmt.Errorf("portfolio %d: %w", commit.PortfolioID, contracts.ErrNotFound)
	}

	p.CashBalance = commit.CashBalance
	p.UpdatedAt = time.Now()
	s.portfolios[commit.PortfolioID] = p

	if commit.Position != nil {
		s.positions[commit.PortfolioID][commit.Position.StockCode] = *commit.Position
	} else if commit.RemoveCode != "" {
		delete(s.positions[commit.PortfolioID], commit.RemoveCode)
	}

	trade := commit.Trade
	trade.ID = s.nextTradeID
	s.nextTradeID++
	s.trades[commit.PortfolioID] = append(s.trades[commit.PortfolioID], trade)
	return trade, nil
}

func (s *MemoryStore) Trades(ctx context.Context, portfolioID int64) ([]contracts.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]contracts.Trade, len(s.trades[portfolioID]))
	copy(out, s.trades[portfolioID])
	return out, nil
}

func (s *MemoryStore) Metrics(ctx context.Context, portfolioID int64) ([]contracts.PerformanceMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]contracts.PerformanceMetric, 0, len(s.metrics[portfolioID]))
	for _, m := range s.metrics[portfolioID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) SaveMetric(ctx context.Context, metric contracts.PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.metrics[metric.PortfolioID]; !ok {
		s.metrics[metric.PortfolioID] = make(map[time.Time]contracts.PerformanceMetric)
	}
	metric.Date = metricDay(metric.Date)
	s.metrics[metric.PortfolioID][metric.Date] = metric
	return nil
}
