package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	applog "github.com/glorpus-work/bulkget/internal/logger"
	"github.com/glorpus-work/bulkget/pkg/download"
	pkgerrors "github.com/glorpus-work/bulkget/pkg/errors"
	"github.com/glorpus-work/bulkget/pkg/extract"
	"github.com/glorpus-work/bulkget/pkg/retry"
	"github.com/google/uuid"
)

// New creates an Orchestrator.
func New(fetcher Fetcher, writer Writer, logger *slog.Logger, policy retry.Policy, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		Fetcher: fetcher,
		Writer:  writer,
		Logger:  logger,
		Retry:   policy,
		Hooks:   hooks,
	}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return applog.Discard()
	}
	return o.Logger
}

// Run downloads every URL found in opts.InputPath and writes the results.
//
// One goroutine is started per URL, in the order the URLs appear, with
// opts.Delay between launches. The writer is prepared once every task has
// been scheduled. Outcomes are then collected in launch order: successes are
// written under their resolved name (or file_<index>), failures are logged as
// warnings. Only an unreadable input or an unusable destination make Run fail.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	if o.Fetcher == nil || o.Writer == nil {
		return Summary{}, fmt.Errorf("orchestrator: fetcher and writer are required")
	}
	logger := o.logger()

	text, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("%w %s: %w", pkgerrors.ErrExtraction, opts.InputPath, err)
	}
	urls := extract.All(string(text))
	summary := Summary{Total: len(urls)}
	logger.Info("starting downloads", "input", opts.InputPath, "urls", len(urls))

	pending := o.schedule(ctx, urls, opts)

	if err := o.Writer.Prepare(ctx); err != nil {
		if !errors.Is(err, pkgerrors.ErrDirectory) {
			err = fmt.Errorf("%w: %w", pkgerrors.ErrDirectory, err)
		}
		return summary, err
	}

	for _, ch := range pending {
		out := <-ch
		if o.collect(ctx, logger, out) {
			summary.Written++
		} else {
			summary.Failed++
		}
	}

	logger.Info("downloads finished", "total", summary.Total, "written", summary.Written, "failed", summary.Failed)
	return summary, nil
}

// schedule launches one task per URL and returns their result channels in launch order.
func (o *Orchestrator) schedule(ctx context.Context, urls []string, opts Options) []<-chan Outcome {
	policy := o.policy()
	pending := make([]<-chan Outcome, 0, len(urls))

	for i, raw := range urls {
		if i > 0 && opts.Delay > 0 {
			wait(ctx, opts.Delay)
		}
		// A URL that does not parse is still scheduled; Fetch reports it.
		u, _ := url.Parse(raw)
		task := Task{
			ID:      uuid.New(),
			Index:   i,
			Request: download.Request{URL: u, Raw: raw, Referer: opts.Referer},
		}
		emit(o.Hooks, Event{Phase: PhaseScheduled, Index: i, URL: raw})
		pending = append(pending, o.launch(ctx, task, policy))
	}
	return pending
}

// launch runs task in its own goroutine. The returned channel receives
// exactly one Outcome, even if the fetch panics.
func (o *Orchestrator) launch(ctx context.Context, task Task, policy retry.Policy) <-chan Outcome {
	ch := make(chan Outcome, 1)
	logger := o.logger().With("task", task.ID.String(), "url", task.Request.String())

	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Debug("retrying download", "attempt", attempt, "wait", wait, "error", err)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}

	go func() {
		out := Outcome{Task: task}
		defer func() {
			if r := recover(); r != nil {
				out.Result = download.Result{}
				out.Err = fmt.Errorf("%w: panic: %v", pkgerrors.ErrTaskExecution, r)
			}
			ch <- out
		}()

		emit(o.Hooks, Event{Phase: PhaseRunning, Index: task.Index, URL: task.Request.String()})
		out.Result, out.Err = retry.Do(ctx, policy, func(ctx context.Context) (download.Result, error) {
			return o.Fetcher.Fetch(ctx, task.Request)
		})
	}()
	return ch
}

// collect writes a successful outcome or reports a failed one. It reports
// whether a file was written.
func (o *Orchestrator) collect(ctx context.Context, logger *slog.Logger, out Outcome) bool {
	rawURL := out.Task.Request.String()
	fail := func(msg string, err error) bool {
		logger.Warn(msg, "url", rawURL, "index", out.Task.Index, "error", err)
		emit(o.Hooks, Event{Phase: PhaseFailed, Index: out.Task.Index, URL: rawURL, Err: err})
		return false
	}

	if out.Err != nil {
		return fail("download failed", out.Err)
	}

	name := FileName(out.Task.Index, out.Result.Filename)
	if err := o.Writer.Write(ctx, name, out.Result.Data); err != nil {
		return fail("failed to write file", err)
	}

	logger.Debug("saved file", "url", rawURL, "file", name, "bytes", len(out.Result.Data))
	emit(o.Hooks, Event{Phase: PhaseSucceeded, Index: out.Task.Index, URL: rawURL})
	return true
}

// FileName returns hint, or file_<index> when the hint is empty.
func FileName(index int, hint string) string {
	if hint != "" {
		return hint
	}
	return fmt.Sprintf("file_%d", index)
}

// policy returns the configured retry policy, falling back to the default
// schedule when no attempt budget was set.
func (o *Orchestrator) policy() retry.Policy {
	p := o.Retry
	if p.MaxAttempts <= 0 {
		d := retry.DefaultPolicy()
		p.MaxAttempts, p.BaseDelay, p.MaxDelay, p.Factor = d.MaxAttempts, d.BaseDelay, d.MaxDelay, d.Factor
	}
	return p
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
