package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	jobs, err := Load(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}

func TestLoadJSONL(t *testing.T) {
	path := writeRegistry(t, `{"job_id":"job-1","metadata":{"repo":"acme/api"}}

{"job_id":"job-2"}
"job-3"
{"metadata":{"orphan":true}}
`)
	jobs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d: %+v", len(jobs), jobs)
	}
	if jobs[0].JobID != "job-1" || jobs[0].Metadata["repo"] != "acme/api" {
		t.Fatalf("unexpected first job: %+v", jobs[0])
	}
	if jobs[2].JobID != "job-3" {
		t.Fatalf("string entry not normalized: %+v", jobs[2])
	}
}

func TestLoadJSONArray(t *testing.T) {
	path := writeRegistry(t, `[{"job_id":"job-1"},"job-2",{"other":"field"}]`)
	jobs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].JobID != "job-1" || jobs[1].JobID != "job-2" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestLoadDuplicateIDsAreKept(t *testing.T) {
	// Duplicate ids are legal: the monitor polls them twice per cycle and
	// its per-job work is idempotent.
	path := writeRegistry(t, "\"job-1\"\n\"job-1\"\n")
	jobs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected duplicates preserved, got %+v", jobs)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	path := writeRegistry(t, "{broken\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed registry")
	}
}

func TestAppendThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.jsonl")

	if err := Append(path, Job{JobID: "job-1", Metadata: map[string]interface{}{"branch": "main"}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := Append(path, Job{JobID: "job-2"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := Append(path, Job{}); err == nil {
		t.Fatal("Append accepted empty job id")
	}

	jobs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].JobID != "job-1" || jobs[1].JobID != "job-2" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
	if jobs[0].Metadata["branch"] != "main" {
		t.Fatalf("metadata lost: %+v", jobs[0])
	}
}
