package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink is the durable append-only event log. A single monitor process is
// the only writer; any number of tailers may read it concurrently since
// appends are the only mutation.
type Sink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenSink opens (creating if needed) the event log at path.
func OpenSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create event sink dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event sink %q: %w", path, err)
	}
	return &Sink{file: f, path: path}, nil
}

// Path returns the sink file path.
func (s *Sink) Path() string {
	return s.path
}

// Append serializes the event and writes it as one record. The record is
// written with a single write syscall so a concurrent reader never observes
// a partial line under O_APPEND semantics.
func (s *Sink) Append(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Kind(), err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("failed to append to event sink: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close event sink: %w", err)
	}
	return nil
}
