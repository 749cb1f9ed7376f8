// Package monitor implements the poll loop that watches remote jobs and
// publishes actionable events. The common case, a job that is still
// running with nothing new to say, produces no event at all; that silence
// is what keeps the controller's attention budget intact.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/vigil-run/vigil/pkg/events"
	"github.com/vigil-run/vigil/pkg/log"
	"github.com/vigil-run/vigil/pkg/registry"
	"github.com/vigil-run/vigil/pkg/remote"
	"github.com/vigil-run/vigil/pkg/state"
)

// API is the slice of the remote client the monitor needs.
type API interface {
	JobStatus(ctx context.Context, jobID string) (*remote.Status, error)
	Messages(ctx context.Context, jobID, cursor string) (*remote.MessagePage, error)
}

// EventSink accepts emitted events. Satisfied by *events.Sink.
type EventSink interface {
	Append(ev events.Event) error
}

// Config wires a Monitor.
type Config struct {
	// RegistryPath is the job registry file, re-read every cycle.
	RegistryPath string
	// Remote fetches job status and activity pages.
	Remote API
	// Store is the durable per-job state, saved after every cycle.
	Store *state.Store
	// Sink receives classified events.
	Sink EventSink
	// PollInterval is the sleep between cycles.
	PollInterval time.Duration
	// StuckThreshold is how long a job may sit without observed activity
	// before a stuck event fires.
	StuckThreshold time.Duration
}

// Monitor polls every registered job on a fixed interval and turns state
// transitions into events.
type Monitor struct {
	registryPath   string
	remote         API
	store          *state.Store
	sink           EventSink
	pollInterval   time.Duration
	stuckThreshold time.Duration
	now            func() time.Time
}

// New validates the configuration and builds a Monitor.
func New(cfg Config) (*Monitor, error) {
	if cfg.RegistryPath == "" {
		return nil, errors.New("registry path is required")
	}
	if cfg.Remote == nil {
		return nil, errors.New("remote API is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("event sink is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 45 * time.Second
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = 20 * time.Minute
	}
	return &Monitor{
		registryPath:   cfg.RegistryPath,
		remote:         cfg.Remote,
		store:          cfg.Store,
		sink:           cfg.Sink,
		pollInterval:   cfg.PollInterval,
		stuckThreshold: cfg.StuckThreshold,
		now:            time.Now,
	}, nil
}

// Run polls forever until the context is cancelled. Failures local to one
// job never stop the loop; failures writing the monitor's own durable
// state do, since continuing would risk duplicate or lost events.
func (m *Monitor) Run(ctx context.Context) error {
	log.Info("monitor started",
		"registry", m.registryPath,
		"poll_interval", m.pollInterval,
		"stuck_threshold", m.stuckThreshold)

	for {
		if err := m.Cycle(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// Cycle runs one poll pass over the registry and persists the state store
// afterward. The registry is re-read each cycle so externally registered
// jobs are picked up without a restart.
func (m *Monitor) Cycle(ctx context.Context) error {
	jobs, err := registry.Load(m.registryPath)
	if err != nil {
		// The registry is an external collaborator; an unreadable file
		// is its owner's problem, not grounds to kill the monitor.
		log.Error("failed to load job registry", "error", err)
		return nil
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.pollJob(ctx, job.JobID); err != nil {
			return err
		}
	}

	if err := m.store.Save(); err != nil {
		return err
	}
	return nil
}

// pollJob runs the per-job classification steps. The returned error is
// non-nil only for sink append failures, which are fatal.
func (m *Monitor) pollJob(ctx context.Context, jobID string) error {
	js := m.store.Job(jobID)

	status, err := m.remote.JobStatus(ctx, jobID)
	if err != nil {
		// A transient observation, not a job-state transition: emit the
		// failure and leave the stored state untouched.
		log.Warn("status fetch failed", "job_id", jobID, "error", err)
		return m.sink.Append(events.NewTransportError(jobID, err.Error(), m.now()))
	}

	changed := js.ObserveStatus(status.Status, m.now())

	switch Classify(status.Status) {
	case ClassSuccessTerminal:
		if !changed {
			return nil
		}
		log.Info("job completed", "job_id", jobID, "status", status.Status)
		return m.sink.Append(events.NewCompleted(jobID, status.Status, status.Payload, m.now()))

	case ClassFailureTerminal:
		if !changed {
			return nil
		}
		log.Info("job failed", "job_id", jobID, "status", status.Status)
		return m.sink.Append(events.NewTerminalError(jobID, status.Status, status.Payload, m.now()))

	case ClassAwaitingInput:
		if !changed {
			return nil
		}
		log.Info("job awaiting input", "job_id", jobID, "status", status.Status)
		return m.sink.Append(events.NewStatusQuestion(jobID, status.Status, status.Payload, m.now()))
	}

	// Still running: scan the activity stream for an actionable entry.
	page, err := m.remote.Messages(ctx, jobID, js.Cursor)
	if err != nil {
		// No new data this cycle; the next poll retries from the same
		// cursor.
		log.Debug("message fetch failed", "job_id", jobID, "error", err)
		page = nil
	}
	if page != nil {
		js.AdvanceCursor(page.NextCursor)
		if msg, ok := FirstActionable(page.Messages); ok {
			js.Touch(m.now())
			log.Info("job asked a question", "job_id", jobID)
			return m.sink.Append(events.NewQuestion(jobID, events.Message{
				Role:    msg.Role,
				Content: msg.Content,
				Tags:    msg.Tags,
			}, m.now()))
		}
	}

	// Stuck detection is edge-triggered: refreshing the activity stamp
	// after firing turns "every cycle past the threshold" into "once per
	// threshold window".
	if js.StuckSince(m.stuckThreshold, m.now()) {
		lastActivity := js.LastActivity
		log.Warn("job appears stuck", "job_id", jobID, "last_activity", lastActivity)
		if err := m.sink.Append(events.NewStuck(jobID, lastActivity, m.now())); err != nil {
			return err
		}
		js.Touch(m.now())
	}
	return nil
}
