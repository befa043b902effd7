//go:generate mockgen -destination=./mocks/orchestrator.go . Fetcher,Writer

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/glorpus-work/bulkget/pkg/download"
	"github.com/glorpus-work/bulkget/pkg/retry"
	"github.com/google/uuid"
)

// Fetcher performs a single download attempt.
type Fetcher interface {
	Fetch(ctx context.Context, req download.Request) (download.Result, error)
}

// Writer is the flat destination the collected files are written to.
type Writer interface {
	Prepare(ctx context.Context) error
	Write(ctx context.Context, name string, data []byte) error
}

// Orchestrator ties the fetcher, the retry policy and the output writer
// together for one run over a URL list.
type Orchestrator struct {
	Fetcher Fetcher
	Writer  Writer
	Logger  *slog.Logger
	Retry   retry.Policy // zero value means retry.DefaultPolicy()
	Hooks   Hooks        // Hooks for progress and event notifications
}

// Phase is a task state.
type Phase string

// Task states. A task moves from scheduled to running and ends in exactly
// one of succeeded or failed.
const (
	PhaseScheduled Phase = "scheduled"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Event represents a task state change.
type Event struct {
	Phase Phase
	Index int
	URL   string
	Err   error // set for PhaseFailed
}

// Hooks carries callbacks for progress events.
// OnEvent may be called from several goroutines at once.
type Hooks struct {
	OnEvent func(Event)
}

// Options control a single run.
type Options struct {
	InputPath string
	Delay     time.Duration // pause between successive launches
	Referer   string
}

// Task is one URL scheduled for download.
type Task struct {
	ID      uuid.UUID
	Index   int // position in the extracted list, 0-based
	Request download.Request
}

// Outcome is the single result a task delivers.
type Outcome struct {
	Task   Task
	Result download.Result
	Err    error
}

// Summary counts what a run did.
type Summary struct {
	Total   int
	Written int
	Failed  int
}
