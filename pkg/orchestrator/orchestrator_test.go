package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glorpus-work/bulkget/pkg/download"
	pkgerrors "github.com/glorpus-work/bulkget/pkg/errors"
	ocmocks "github.com/glorpus-work/bulkget/pkg/orchestrator/mocks"
	"github.com/glorpus-work/bulkget/pkg/retry"
	"github.com/glorpus-work/bulkget/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Factor:      2,
	}
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// eventLog records events and markers from concurrent callers.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	marks  []string
}

func (l *eventLog) onEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	l.marks = append(l.marks, string(e.Phase))
}

func (l *eventLog) mark(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marks = append(l.marks, s)
}

func (l *eventLog) phases(p Phase) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Phase == p {
			out = append(out, e)
		}
	}
	return out
}

func TestRun_WritesInLaunchOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/a.txt https://example.com/b.txt\nhttps://example.com/c.txt\n")

	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req download.Request) (download.Result, error) {
			// Earlier URLs finish last.
			switch req.URL.Path {
			case "/a.txt":
				time.Sleep(30 * time.Millisecond)
			case "/b.txt":
				time.Sleep(15 * time.Millisecond)
			}
			name := filepath.Base(req.URL.Path)
			return download.Result{Filename: name, Data: []byte(name)}, nil
		},
	).Times(3)

	writer := ocmocks.NewMockWriter(ctrl)
	gomock.InOrder(
		writer.EXPECT().Prepare(gomock.Any()).Return(nil),
		writer.EXPECT().Write(gomock.Any(), "a.txt", []byte("a.txt")).Return(nil),
		writer.EXPECT().Write(gomock.Any(), "b.txt", []byte("b.txt")).Return(nil),
		writer.EXPECT().Write(gomock.Any(), "c.txt", []byte("c.txt")).Return(nil),
	)

	orch := New(fetcher, writer, nil, fastPolicy(5), Hooks{})
	summary, err := orch.Run(context.Background(), Options{InputPath: input})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Written: 3}, summary)
}

func TestRun_SynthesizedName(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/x.bin https://example.com/\n")

	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req download.Request) (download.Result, error) {
			if req.URL.Path == "/" {
				return download.Result{Data: []byte("B")}, nil
			}
			return download.Result{Filename: "x.bin", Data: []byte("A")}, nil
		},
	).Times(2)

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(nil)
	writer.EXPECT().Write(gomock.Any(), "x.bin", []byte("A")).Return(nil)
	writer.EXPECT().Write(gomock.Any(), "file_1", []byte("B")).Return(nil)

	summary, err := New(fetcher, writer, nil, fastPolicy(1), Hooks{}).Run(context.Background(), Options{InputPath: input})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Written)
}

func TestRun_FailureIsWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/ok.txt\nhttps://example.com/broken\n")
	logger, logs := bufferLogger()

	boom := errors.New("connection reset")
	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req download.Request) (download.Result, error) {
			if req.URL.Path == "/broken" {
				return download.Result{}, boom
			}
			return download.Result{Filename: "ok.txt", Data: []byte("ok")}, nil
		},
	).Times(1 + 3)

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(nil)
	writer.EXPECT().Write(gomock.Any(), "ok.txt", []byte("ok")).Return(nil)

	events := &eventLog{}
	summary, err := New(fetcher, writer, logger, fastPolicy(3), Hooks{OnEvent: events.onEvent}).
		Run(context.Background(), Options{InputPath: input})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Written: 1, Failed: 1}, summary)

	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "download failed")
	assert.Contains(t, out, "https://example.com/broken")
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, "retrying download")

	failed := events.phases(PhaseFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Index)
	assert.ErrorIs(t, failed[0].Err, pkgerrors.ErrRetryExhausted)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.Len(t, events.phases(PhaseSucceeded), 1)
}

func TestRun_WriteFailureIsWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/a https://example.com/b")
	logger, logs := bufferLogger()

	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req download.Request) (download.Result, error) {
			return download.Result{Filename: filepath.Base(req.URL.Path), Data: []byte("x")}, nil
		},
	).Times(2)

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(nil)
	writer.EXPECT().Write(gomock.Any(), "a", gomock.Any()).Return(pkgerrors.ErrWrite)
	writer.EXPECT().Write(gomock.Any(), "b", gomock.Any()).Return(nil)

	summary, err := New(fetcher, writer, logger, fastPolicy(1), Hooks{}).Run(context.Background(), Options{InputPath: input})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Written: 1, Failed: 1}, summary)
	assert.Contains(t, logs.String(), "failed to write file")
}

func TestRun_PanicIsRecovered(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/panic https://example.com/fine")

	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req download.Request) (download.Result, error) {
			if req.URL.Path == "/panic" {
				panic("unexpected")
			}
			return download.Result{Filename: "fine", Data: []byte("ok")}, nil
		},
	).Times(2)

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(nil)
	writer.EXPECT().Write(gomock.Any(), "fine", []byte("ok")).Return(nil)

	events := &eventLog{}
	summary, err := New(fetcher, writer, nil, fastPolicy(5), Hooks{OnEvent: events.onEvent}).
		Run(context.Background(), Options{InputPath: input})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Written: 1, Failed: 1}, summary)

	failed := events.phases(PhaseFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, pkgerrors.ErrTaskExecution)
}

func TestRun_MissingInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := ocmocks.NewMockFetcher(ctrl)
	writer := ocmocks.NewMockWriter(ctrl)

	_, err := New(fetcher, writer, nil, fastPolicy(1), Hooks{}).
		Run(context.Background(), Options{InputPath: filepath.Join(t.TempDir(), "absent.txt")})
	require.ErrorIs(t, err, pkgerrors.ErrExtraction)
}

// fetchFunc adapts a function to Fetcher.
type fetchFunc func(ctx context.Context, req download.Request) (download.Result, error)

func (f fetchFunc) Fetch(ctx context.Context, req download.Request) (download.Result, error) {
	return f(ctx, req)
}

func TestRun_PrepareFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/a https://example.com/b")

	var wg sync.WaitGroup
	wg.Add(2)
	fetcher := fetchFunc(func(context.Context, download.Request) (download.Result, error) {
		defer wg.Done()
		return download.Result{Data: []byte("x")}, nil
	})

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(errors.New("read-only file system"))

	summary, err := New(fetcher, writer, nil, fastPolicy(1), Hooks{}).Run(context.Background(), Options{InputPath: input})
	require.ErrorIs(t, err, pkgerrors.ErrDirectory)
	assert.Contains(t, err.Error(), "read-only file system")
	assert.Equal(t, Summary{Total: 2}, summary)

	// Tasks already in flight still run to completion.
	wg.Wait()
}

func TestRun_PrepareAfterScheduling(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/1 https://example.com/2 https://example.com/3")
	events := &eventLog{}

	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(download.Result{Data: []byte("x")}, nil).Times(3)

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).DoAndReturn(func(context.Context) error {
		events.mark("prepare")
		return nil
	})
	writer.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	_, err := New(fetcher, writer, nil, fastPolicy(1), Hooks{OnEvent: events.onEvent}).
		Run(context.Background(), Options{InputPath: input})
	require.NoError(t, err)

	events.mu.Lock()
	defer events.mu.Unlock()
	scheduled := 0
	for _, m := range events.marks {
		if m == "prepare" {
			break
		}
		if m == string(PhaseScheduled) {
			scheduled++
		}
	}
	assert.Equal(t, 3, scheduled, "all tasks are scheduled before the destination is prepared")
}

func TestRun_DelaySpacesLaunches(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/1 https://example.com/2 https://example.com/3")
	const delay = 40 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time
	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, download.Request) (download.Result, error) {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			return download.Result{Data: []byte("x")}, nil
		},
	).Times(3)

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(nil)
	writer.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	begin := time.Now()
	_, err := New(fetcher, writer, nil, fastPolicy(1), Hooks{}).
		Run(context.Background(), Options{InputPath: input, Delay: delay})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(begin), 2*delay)
	require.Len(t, starts, 3)
	first, last := starts[0], starts[0]
	for _, s := range starts {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), delay)
}

func TestRun_RefererIsForwarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "https://example.com/a")

	fetcher := ocmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req download.Request) (download.Result, error) {
			assert.Equal(t, "https://gallery.example.com/", req.Referer)
			return download.Result{Data: []byte("x")}, nil
		},
	)

	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(nil)
	writer.EXPECT().Write(gomock.Any(), "file_0", []byte("x")).Return(nil)

	_, err := New(fetcher, writer, nil, fastPolicy(1), Hooks{}).
		Run(context.Background(), Options{InputPath: input, Referer: "https://gallery.example.com/"})
	require.NoError(t, err)
}

func TestRun_EmptyInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	input := testutil.WriteURLList(t, "nothing to see here\n")

	fetcher := ocmocks.NewMockFetcher(ctrl)
	writer := ocmocks.NewMockWriter(ctrl)
	writer.EXPECT().Prepare(gomock.Any()).Return(nil)

	summary, err := New(fetcher, writer, nil, fastPolicy(1), Hooks{}).Run(context.Background(), Options{InputPath: input})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestRun_RequiresCollaborators(t *testing.T) {
	_, err := (&Orchestrator{}).Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "report.pdf", FileName(3, "report.pdf"))
	assert.Equal(t, "file_3", FileName(3, ""))
	assert.Equal(t, "file_0", FileName(0, ""))
}

func TestPolicy_DefaultsWhenUnset(t *testing.T) {
	p := (&Orchestrator{}).policy()
	assert.Equal(t, retry.DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, retry.DefaultBaseDelay, p.BaseDelay)

	custom := (&Orchestrator{Retry: fastPolicy(2)}).policy()
	assert.Equal(t, 2, custom.MaxAttempts)
	assert.Equal(t, time.Millisecond, custom.BaseDelay)
}
