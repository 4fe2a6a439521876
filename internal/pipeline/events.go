package pipeline

import "time"

// Event is one progress update published during a pipeline run.
type Event struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	StockCode string    `json:"stock_code,omitempty"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Run stages published to the stream.
const (
	StageStarted   = "run_started"
	StageStockDone = "stock_done"
	StageStockFail = "stock_failed"
	StagePersist   = "persist"
	StageCompleted = "run_completed"
)

// Sink receives progress events. The API stream hub implements it;
// a NopSink serves CLI runs without subscribers.
type Sink interface {
	Publish(Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(Event) {}
