// Package registry reads and appends the durable list of remote jobs the
// monitor tracks. The file is owned by whoever registers jobs (the serve
// tools, the CLI, or a human with an editor); the monitor only reads it,
// in full, once per poll cycle.
package registry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Job is one tracked remote job. Metadata is opaque to the monitor.
type Job struct {
	JobID    string                 `json:"job_id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Load reads the registry at path. Both formats the original tooling
// produced are accepted: a JSON array, or JSONL with one object per line.
// Bare string entries normalize to a Job with that id; entries without a
// job id are dropped. A missing file is an empty registry.
func Load(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job registry %q: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		return parseArray(trimmed, path)
	}
	return parseLines(trimmed, path)
}

func parseArray(data []byte, path string) ([]Job, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse job registry %q: %w", path, err)
	}
	jobs := make([]Job, 0, len(entries))
	for _, entry := range entries {
		job, ok, err := normalize(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse job registry %q: %w", path, err)
		}
		if ok {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func parseLines(data []byte, path string) ([]Job, error) {
	var jobs []Job
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		job, ok, err := normalize(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse job registry %q: %w", path, err)
		}
		if ok {
			jobs = append(jobs, job)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job registry %q: %w", path, err)
	}
	return jobs, nil
}

// normalize turns one registry entry into a Job. The second return is
// false for well-formed entries that carry no job id.
func normalize(entry json.RawMessage) (Job, bool, error) {
	var id string
	if err := json.Unmarshal(entry, &id); err == nil {
		return Job{JobID: id}, id != "", nil
	}
	var job Job
	if err := json.Unmarshal(entry, &job); err != nil {
		return Job{}, false, err
	}
	return job, job.JobID != "", nil
}

// Append adds one job to the registry as a JSONL record.
func Append(path string, job Job) error {
	if job.JobID == "" {
		return errors.New("job id is required")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal registry entry: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create registry dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open job registry %q: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append to job registry %q: %w", path, err)
	}
	return nil
}
