package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vigil-run/vigil/pkg/events"
	"github.com/vigil-run/vigil/pkg/log"
	"github.com/vigil-run/vigil/pkg/state"
)

const defaultPollInterval = 2 * time.Second

// Config carries the tailer's collaborators and tuning knobs.
type Config struct {
	// SinkPath is the append-only event log to follow.
	SinkPath string
	// StatePath is where the byte offset is persisted between runs.
	StatePath string
	// Invoker receives each event exactly once.
	Invoker Invoker
	// PollInterval is how often the sink is re-examined. Defaults to 2s.
	PollInterval time.Duration
}

// Tailer follows the event sink from a durable byte offset and hands each
// record to the invoker exactly once. The offset only advances after the
// whole batch has been dispatched, so a crash mid-batch redelivers the
// batch rather than dropping it.
type Tailer struct {
	cfg    Config
	offset int64
}

// New builds a tailer, restoring its read position from the state file.
func New(cfg Config) (*Tailer, error) {
	if cfg.SinkPath == "" {
		return nil, errors.New("sink path is required")
	}
	if cfg.StatePath == "" {
		return nil, errors.New("state path is required")
	}
	if cfg.Invoker == nil {
		return nil, errors.New("invoker is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	ws, err := state.LoadWatcher(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	return &Tailer{cfg: cfg, offset: ws.Offset}, nil
}

// Offset reports the current read position.
func (t *Tailer) Offset() int64 { return t.offset }

// Run polls the sink until the context is cancelled. Errors from Cycle are
// local I/O failures and stop the loop.
func (t *Tailer) Run(ctx context.Context) error {
	log.Infof("watching %s from offset %d", t.cfg.SinkPath, t.offset)
	for {
		if err := t.Cycle(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

// Cycle examines the sink once and dispatches any new records. An absent
// sink and an unchanged sink are both quiet no-ops.
func (t *Tailer) Cycle(ctx context.Context) error {
	fi, err := os.Stat(t.cfg.SinkPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat sink %q: %w", t.cfg.SinkPath, err)
	}

	size := fi.Size()
	if size < t.offset {
		log.Warnf("sink %s shrank from %d to %d bytes, restarting from the beginning", t.cfg.SinkPath, t.offset, size)
		t.offset = 0
	}
	if size == t.offset {
		return nil
	}

	batch, err := t.readRange(t.offset, size)
	if err != nil {
		return err
	}
	t.dispatch(ctx, batch)

	// The offset is the size observed before reading. Records appended
	// while dispatching are picked up next cycle.
	t.offset = size
	if err := state.SaveWatcher(t.cfg.StatePath, state.WatcherState{Offset: t.offset}); err != nil {
		return err
	}
	return nil
}

func (t *Tailer) readRange(from, to int64) ([]byte, error) {
	f, err := os.Open(t.cfg.SinkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink %q: %w", t.cfg.SinkPath, err)
	}
	defer f.Close()

	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek sink %q to %d: %w", t.cfg.SinkPath, from, err)
	}
	data, err := io.ReadAll(io.LimitReader(f, to-from))
	if err != nil {
		return nil, fmt.Errorf("failed to read sink %q: %w", t.cfg.SinkPath, err)
	}
	return data, nil
}

// dispatch hands each record in the batch to the invoker. Handler failures
// and malformed records are logged and skipped; they never stop delivery of
// the rest of the batch.
func (t *Tailer) dispatch(ctx context.Context, batch []byte) {
	for _, line := range bytes.Split(batch, []byte{'\n'}) {
		record := bytes.TrimSpace(line)
		if len(record) == 0 {
			continue
		}

		h, err := events.ParseHeader(record)
		if err != nil {
			log.Warnf("skipping malformed sink record: %v", err)
			continue
		}

		log.Infof("delivering %s event for job %s", h.Kind(), h.Job())
		code, err := t.cfg.Invoker.Invoke(ctx, record)
		if err != nil {
			log.Errorf("handler failed for job %s: %v", h.Job(), err)
			continue
		}
		if code != 0 {
			log.Warnf("handler exited with status %d for job %s", code, h.Job())
		}
	}
}
