package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WatcherState is the tailer's durable read position into the event sink.
type WatcherState struct {
	Offset int64 `json:"offset"`
}

// LoadWatcher reads the watcher state from path. A missing file means the
// tailer starts from the beginning of the sink.
func LoadWatcher(path string) (WatcherState, error) {
	var ws WatcherState

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ws, nil
	}
	if err != nil {
		return ws, fmt.Errorf("failed to read watcher state %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &ws); err != nil {
		return ws, fmt.Errorf("failed to parse watcher state %q: %w", path, err)
	}
	if ws.Offset < 0 {
		return ws, fmt.Errorf("watcher state %q has negative offset %d", path, ws.Offset)
	}
	return ws, nil
}

// SaveWatcher rewrites the watcher state file.
func SaveWatcher(path string, ws WatcherState) error {
	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal watcher state: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create watcher state dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write watcher state %q: %w", path, err)
	}
	return nil
}
