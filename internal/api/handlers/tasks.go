package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/pipeline"
	syncsvc "github.com/vvnuui/cerisier/internal/sync"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// Task kinds accepted by the trigger endpoint.
const (
	TaskSyncStockList  = "sync_stock_list"
	TaskSyncKline      = "sync_kline"
	TaskSyncMoneyFlow  = "sync_money_flow"
	TaskSyncMargin     = "sync_margin"
	TaskSyncFinancials = "sync_financials"
	TaskSyncNews       = "sync_news"
	TaskValidate       = "validate"
	TaskPipeline       = "pipeline"
)

// Task statuses.
const (
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Task is one background job record. Records live in memory for the
// server's lifetime.
type Task struct {
	ID         int64                  `json:"id"`
	Kind       string                 `json:"kind"`
	Style      contracts.TradingStyle `json:"style,omitempty"`
	Status     string                 `json:"status"`
	Detail     string                 `json:"detail,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// TaskHandler triggers and tracks sync and pipeline jobs.
// SSOT: background task tracking lives in this struct.
type TaskHandler struct {
	syncService  *syncsvc.Service
	orchestrator *pipeline.Orchestrator
	timeout      time.Duration
	logger       *logger.Logger

	mu     gosync.Mutex
	nextID int64
	tasks  []*Task
}

// NewTaskHandler creates a new task handler. Jobs are cancelled after
// timeout; zero means one hour.
func NewTaskHandler(syncService *syncsvc.Service, orch *pipeline.Orchestrator, timeout time.Duration, log *logger.Logger) *TaskHandler {
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &TaskHandler{
		syncService:  syncService,
		orchestrator: orch,
		timeout:      timeout,
		logger:       log,
	}
}

// TriggerRequest selects the job to run.
type TriggerRequest struct {
	Kind  string                 `json:"kind"`
	Style contracts.TradingStyle `json:"style,omitempty"`
	Days  int                    `json:"days,omitempty"`
}

// Trigger launches one background job and returns its record.
// POST /api/v1/tasks
func (h *TaskHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	run, err := h.jobFor(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := h.register(req)
	snapshot := *task
	go h.execute(task, run)

	respondJSON(w, http.StatusAccepted, snapshot)
}

// List returns all task records, newest first.
// GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Task, 0, len(h.tasks))
	for i := len(h.tasks) - 1; i >= 0; i-- {
		out = append(out, *h.tasks[i])
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(out),
		"tasks": out,
	})
}

// jobFor maps a trigger request to a runnable closure.
func (h *TaskHandler) jobFor(req TriggerRequest) (func(ctx context.Context) (string, error), error) {
	switch req.Kind {
	case TaskSyncStockList:
		return func(ctx context.Context) (string, error) {
			n, err := h.syncService.SyncStockList(ctx)
			return fmt.Sprintf("%d stocks", n), err
		}, nil
	case TaskSyncKline:
		return h.syncJob(func(ctx context.Context) (syncsvc.Result, error) {
			return h.syncService.SyncDailyKline(ctx, req.Days)
		}), nil
	case TaskSyncMoneyFlow:
		return h.syncJob(func(ctx context.Context) (syncsvc.Result, error) {
			return h.syncService.SyncMoneyFlow(ctx, req.Days)
		}), nil
	case TaskSyncMargin:
		return h.syncJob(func(ctx context.Context) (syncsvc.Result, error) {
			return h.syncService.SyncMarginData(ctx, req.Days)
		}), nil
	case TaskSyncFinancials:
		return h.syncJob(h.syncService.SyncFinancialReports), nil
	case TaskSyncNews:
		return h.syncJob(func(ctx context.Context) (syncsvc.Result, error) {
			return h.syncService.SyncNews(ctx, req.Days)
		}), nil
	case TaskValidate:
		return func(ctx context.Context) (string, error) {
			report, err := h.syncService.ValidateData(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d/%d valid, %d issues", report.Valid, report.Total, len(report.Issues)), nil
		}, nil
	case TaskPipeline:
		if !knownStyle(req.Style) {
			return nil, fmt.Errorf("pipeline requires a valid style")
		}
		return func(ctx context.Context) (string, error) {
			result, err := h.orchestrator.RunForUniverse(ctx, req.Style)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d recommendations, %d failures", len(result.Recommendations), len(result.Failures)), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown task kind %q", req.Kind)
	}
}

func (h *TaskHandler) syncJob(fn func(ctx context.Context) (syncsvc.Result, error)) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		result, err := fn(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d/%d stocks, %d rows", result.Succeeded, result.Total, result.Rows), nil
	}
}

func (h *TaskHandler) register(req TriggerRequest) *Task {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	task := &Task{
		ID:        h.nextID,
		Kind:      req.Kind,
		Style:     req.Style,
		Status:    TaskRunning,
		StartedAt: time.Now(),
	}
	h.tasks = append(h.tasks, task)
	return task
}

func (h *TaskHandler) execute(task *Task, run func(ctx context.Context) (string, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	detail, err := run(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	task.FinishedAt = &now
	if err != nil {
		task.Status = TaskFailed
		task.Detail = err.Error()
		h.logger.WithError(err).WithField("kind", task.Kind).Error("Task failed")
		return
	}
	task.Status = TaskCompleted
	task.Detail = detail
	h.logger.WithFields(map[string]interface{}{
		"kind":   task.Kind,
		"detail": detail,
	}).Info("Task completed")
}
