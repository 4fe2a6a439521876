package contracts

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSignalFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Signal
	}{
		{100, SignalBuy},
		{70, SignalBuy},
		{69.9, SignalHold},
		{50, SignalHold},
		{30.1, SignalHold},
		{30, SignalSell},
		{0, SignalSell},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score_%.1f", tt.score), func(t *testing.T) {
			if got := SignalFromScore(tt.score); got != tt.want {
				t.Errorf("SignalFromScore(%.1f) = %s, want %s", tt.score, got, tt.want)
			}
		})
	}
}

func TestNeutralResult(t *testing.T) {
	r := NeutralResult("000001", DimTechnical, "insufficient kline data")

	if r.Score != 50 {
		t.Errorf("Expected score 50, got %f", r.Score)
	}
	if r.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %f", r.Confidence)
	}
	if r.Signal != SignalHold {
		t.Errorf("Expected HOLD, got %s", r.Signal)
	}
	if !r.Degraded() {
		t.Error("Expected neutral result to be degraded")
	}
}

func TestTradingStyleValid(t *testing.T) {
	for _, style := range Styles {
		if !style.Valid() {
			t.Errorf("Expected %s to be valid", style)
		}
	}

	if TradingStyle("scalping").Valid() {
		t.Error("Expected unknown style to be invalid")
	}
}

func TestDimensionsClosedSet(t *testing.T) {
	if len(Dimensions) != 11 {
		t.Fatalf("Expected 11 dimensions, got %d", len(Dimensions))
	}

	seen := make(map[string]bool)
	for _, d := range Dimensions {
		if seen[d] {
			t.Errorf("Duplicate dimension %s", d)
		}
		seen[d] = true
	}
}

func TestPositionDerivedValues(t *testing.T) {
	p := Position{
		StockCode:    "000001",
		Shares:       1000,
		AvgCost:      10.0,
		CurrentPrice: 11.0,
	}

	if p.MarketValue() != 11000 {
		t.Errorf("MarketValue = %f, want 11000", p.MarketValue())
	}
	if p.CostBasis() != 10000 {
		t.Errorf("CostBasis = %f, want 10000", p.CostBasis())
	}
	if p.UnrealizedPnL() != 1000 {
		t.Errorf("UnrealizedPnL = %f, want 1000", p.UnrealizedPnL())
	}
	if p.UnrealizedPnLPct() != 10 {
		t.Errorf("UnrealizedPnLPct = %f, want 10", p.UnrealizedPnLPct())
	}
}

func TestPositionZeroCostBasis(t *testing.T) {
	p := Position{Shares: 0, AvgCost: 0, CurrentPrice: 10}

	if p.UnrealizedPnLPct() != 0 {
		t.Errorf("Expected 0 pct on zero cost basis, got %f", p.UnrealizedPnLPct())
	}
}

func TestDataUnavailableError(t *testing.T) {
	err := &DataUnavailableError{
		Operation: "fetch_kline",
		StockCode: "600519",
		Reasons: map[string]string{
			"tencent":   "timeout",
			"eastmoney": "empty response",
		},
	}

	msg := err.Error()
	if !strings.Contains(msg, "fetch_kline") || !strings.Contains(msg, "600519") {
		t.Errorf("Error message missing context: %s", msg)
	}

	// Providers are sorted for deterministic messages
	if strings.Index(msg, "eastmoney") > strings.Index(msg, "tencent") {
		t.Errorf("Expected sorted provider order: %s", msg)
	}

	wrapped := fmt.Errorf("pipeline: %w", err)
	if !IsDataUnavailable(wrapped) {
		t.Error("Expected IsDataUnavailable to match wrapped error")
	}
	if IsDataUnavailable(errors.New("other")) {
		t.Error("Expected IsDataUnavailable to reject unrelated error")
	}
}

func TestRounding(t *testing.T) {
	if got := Round2(3.14159); got != 3.14 {
		t.Errorf("Round2 = %f, want 3.14", got)
	}
	if got := Round4(2.718281); got != 2.7183 {
		t.Errorf("Round4 = %f, want 2.7183", got)
	}
}
