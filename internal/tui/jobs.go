package tui

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type jobKind string

type jobStatus string

const (
	jobKindFetch    jobKind = "fetch"
	jobKindFullText jobKind = "fulltext"
	jobKindYank     jobKind = "yank"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs blocking work off the update loop. Every job reports a start
// signal followed by a result envelope carrying the runner's message.
type jobBus struct {
	counter int64
	running int64
	logger  *slog.Logger
}

func newJobBus(logger *slog.Logger) *jobBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobBus{logger: logger}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

// Running returns the number of jobs that have not reported a result yet.
func (b *jobBus) Running() int {
	return int(atomic.LoadInt64(&b.running))
}

// Start schedules runner with its own timeout. A zero timeout means none.
func (b *jobBus) Start(kind jobKind, timeout time.Duration, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	atomic.AddInt64(&b.running, 1)
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		payload, err := runner(ctx)
		atomic.AddInt64(&b.running, -1)
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = jobStatusSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		b.logger.Info("job finished",
			slog.String("job", id),
			slog.String("status", string(snapshot.Status)),
			slog.Duration("duration", snapshot.Duration),
			slog.Any("err", err),
		)
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}

	return tea.Sequence(startCmd, runCmd)
}
