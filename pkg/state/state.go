// Package state persists the monitor's per-job cursor/status/activity
// records and the tailer's read offset across process restarts. Each file
// has exactly one writer process; persistence is a whole-file rewrite.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// JobState tracks what the monitor last observed for one job.
type JobState struct {
	// Cursor is an opaque pagination token into the remote activity
	// stream. It only ever moves forward and is never cleared.
	Cursor string `json:"cursor,omitempty"`
	// LastStatus is the last observed remote status string.
	LastStatus string `json:"last_status,omitempty"`
	// LastActivity is when a state change was last observed. Staleness
	// for stuck detection is measured from here.
	LastActivity time.Time `json:"last_activity,omitzero"`
}

// ObserveStatus records a newly fetched status. It updates LastStatus and
// refreshes LastActivity only when the status actually changed, and
// reports whether it did.
func (j *JobState) ObserveStatus(status string, now time.Time) bool {
	if status == "" || status == j.LastStatus {
		return false
	}
	j.LastStatus = status
	j.LastActivity = now.UTC()
	return true
}

// AdvanceCursor moves the cursor to the token returned by the latest page
// fetch. Empty tokens leave the cursor untouched.
func (j *JobState) AdvanceCursor(cursor string) {
	if cursor != "" {
		j.Cursor = cursor
	}
}

// Touch refreshes LastActivity. Called when an actionable entry is found
// and after a stuck event fires, so stuck stays edge-triggered.
func (j *JobState) Touch(now time.Time) {
	j.LastActivity = now.UTC()
}

// StuckSince reports whether the job has shown no activity for at least
// threshold. Jobs with no recorded activity are never stuck.
func (j *JobState) StuckSince(threshold time.Duration, now time.Time) bool {
	if j.LastActivity.IsZero() {
		return false
	}
	return now.Sub(j.LastActivity) >= threshold
}

// Store holds the job id to JobState mapping, loaded once at startup and
// rewritten in full after every poll cycle.
type Store struct {
	path string
	jobs map[string]*JobState
}

// Load reads the store from path. A missing file yields an empty store;
// any other read or parse failure is an error, since continuing with
// unknown persisted state risks duplicate or lost events.
func Load(path string) (*Store, error) {
	s := &Store{path: path, jobs: make(map[string]*JobState)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.jobs); err != nil {
		return nil, fmt.Errorf("failed to parse state file %q: %w", path, err)
	}
	for id, js := range s.jobs {
		if js == nil {
			s.jobs[id] = &JobState{}
		}
	}
	return s, nil
}

// Job returns the state for a job id, creating an empty entry on first
// access. Entries are never deleted; deregistration is the registry's
// concern.
func (s *Store) Job(id string) *JobState {
	js, ok := s.jobs[id]
	if !ok {
		js = &JobState{}
		s.jobs[id] = js
	}
	return js
}

// Jobs returns the tracked job ids in sorted order.
func (s *Store) Jobs() []string {
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	return len(s.jobs)
}

// Save rewrites the whole store file. Last writer wins; the monitor is
// the single writer by design.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file %q: %w", s.path, err)
	}
	return nil
}
