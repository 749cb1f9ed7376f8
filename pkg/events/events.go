// Package events defines the actionable event records the monitor emits
// and the append-only sink they are published to. Each record is one JSON
// object per line; consumers must tolerate fields they do not understand.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates event variants on the wire via the "event" field.
type Kind string

const (
	// KindQuestion means the remote agent needs input to continue.
	KindQuestion Kind = "question"
	// KindCompleted means the job reached a successful terminal status.
	KindCompleted Kind = "completed"
	// KindError covers failed/cancelled terminal statuses and transport
	// failures observed while polling.
	KindError Kind = "error"
	// KindStuck means no observed state change for longer than the
	// configured threshold.
	KindStuck Kind = "stuck"
)

// Header carries the fields every event record has.
type Header struct {
	ID         string    `json:"id,omitempty"`
	Event      Kind      `json:"event"`
	JobID      string    `json:"job_id"`
	ObservedAt time.Time `json:"observed_at"`
}

// Event is the closed set of sink record variants.
type Event interface {
	Kind() Kind
	Job() string
	Observed() time.Time
}

func (h Header) Kind() Kind          { return h.Event }
func (h Header) Job() string         { return h.JobID }
func (h Header) Observed() time.Time { return h.ObservedAt }

// Message is a remote activity-stream entry attached to question events.
type Message struct {
	Role    string   `json:"role,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Question is emitted when the remote agent asks for input, either via an
// explicit awaiting-input status (Status and Payload set) or an actionable
// activity entry (Message set).
type Question struct {
	Header
	Status  string          `json:"status,omitempty"`
	Message Message         `json:"message"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Completed is emitted once per transition into the successful terminal
// status, carrying the full status payload for the handler.
type Completed struct {
	Header
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Error is emitted for failed/cancelled terminal transitions (Status and
// Payload set) and for transport failures while polling (Message set).
type Error struct {
	Header
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Stuck is emitted at most once per threshold window when a job shows no
// activity. LastActivity is the timestamp the staleness was measured from.
type Stuck struct {
	Header
	LastActivity time.Time `json:"last_activity"`
}

func newHeader(kind Kind, jobID string, at time.Time) Header {
	return Header{
		ID:         uuid.NewString(),
		Event:      kind,
		JobID:      jobID,
		ObservedAt: at.UTC(),
	}
}

// NewQuestion builds a question event for the given activity entry.
func NewQuestion(jobID string, msg Message, at time.Time) Question {
	return Question{Header: newHeader(KindQuestion, jobID, at), Message: msg}
}

// NewStatusQuestion builds a question event for a job whose status says it
// is blocked awaiting input, carrying the full status payload.
func NewStatusQuestion(jobID, status string, payload json.RawMessage, at time.Time) Question {
	return Question{Header: newHeader(KindQuestion, jobID, at), Status: status, Payload: payload}
}

// NewCompleted builds a completed event carrying the remote status payload.
func NewCompleted(jobID, status string, payload json.RawMessage, at time.Time) Completed {
	return Completed{Header: newHeader(KindCompleted, jobID, at), Status: status, Payload: payload}
}

// NewTerminalError builds an error event for a failure-terminal transition.
func NewTerminalError(jobID, status string, payload json.RawMessage, at time.Time) Error {
	return Error{Header: newHeader(KindError, jobID, at), Status: status, Payload: payload}
}

// NewTransportError builds an error event for a remote fetch failure.
func NewTransportError(jobID, message string, at time.Time) Error {
	return Error{Header: newHeader(KindError, jobID, at), Message: message}
}

// NewStuck builds a stuck event recording when activity was last observed.
func NewStuck(jobID string, lastActivity, at time.Time) Stuck {
	return Stuck{Header: newHeader(KindStuck, jobID, at), LastActivity: lastActivity.UTC()}
}

// ParseHeader extracts the common fields from a raw sink record. Unknown
// event kinds and extra fields are not errors; the tailer delivers records
// it cannot fully interpret.
func ParseHeader(raw []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Header{}, fmt.Errorf("malformed event record: %w", err)
	}
	if h.Event == "" {
		return Header{}, fmt.Errorf("malformed event record: missing event field")
	}
	return h, nil
}

// Decode parses a raw sink record into its concrete variant.
func Decode(raw []byte) (Event, error) {
	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	switch h.Event {
	case KindQuestion:
		var ev Question
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed question event: %w", err)
		}
		return ev, nil
	case KindCompleted:
		var ev Completed
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed completed event: %w", err)
		}
		return ev, nil
	case KindError:
		var ev Error
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed error event: %w", err)
		}
		return ev, nil
	case KindStuck:
		var ev Stuck
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed stuck event: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", h.Event)
	}
}
