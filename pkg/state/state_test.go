package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Len())
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted corrupt state file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	js := s.Job("job-1")
	js.ObserveStatus("RUNNING", now)
	js.AdvanceCursor("cursor-42")

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := reloaded.Job("job-1")
	if got.Cursor != "cursor-42" || got.LastStatus != "RUNNING" || !got.LastActivity.Equal(now) {
		t.Fatalf("unexpected reloaded state: %+v", got)
	}
	if !reflect.DeepEqual(reloaded.Jobs(), []string{"job-1"}) {
		t.Fatalf("unexpected job ids: %v", reloaded.Jobs())
	}
}

func TestObserveStatusOnlyOnChange(t *testing.T) {
	js := &JobState{}
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	if !js.ObserveStatus("RUNNING", t0) {
		t.Fatal("first status observation should report a change")
	}
	if js.ObserveStatus("RUNNING", t1) {
		t.Fatal("unchanged status should not report a change")
	}
	if !js.LastActivity.Equal(t0) {
		t.Fatalf("LastActivity moved without a status change: %v", js.LastActivity)
	}
	if !js.ObserveStatus("AWAITING_USER_FEEDBACK", t1) {
		t.Fatal("new status should report a change")
	}
	if !js.LastActivity.Equal(t1) {
		t.Fatalf("LastActivity not refreshed on change: %v", js.LastActivity)
	}
}

func TestObserveStatusIgnoresEmpty(t *testing.T) {
	js := &JobState{LastStatus: "RUNNING"}
	if js.ObserveStatus("", time.Now()) {
		t.Fatal("empty status should not report a change")
	}
	if js.LastStatus != "RUNNING" {
		t.Fatalf("empty status overwrote LastStatus: %q", js.LastStatus)
	}
}

func TestAdvanceCursorNeverClears(t *testing.T) {
	js := &JobState{}
	js.AdvanceCursor("a")
	js.AdvanceCursor("")
	if js.Cursor != "a" {
		t.Fatalf("cursor cleared by empty token: %q", js.Cursor)
	}
	js.AdvanceCursor("b")
	if js.Cursor != "b" {
		t.Fatalf("cursor did not advance: %q", js.Cursor)
	}
}

func TestStuckSince(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	threshold := 20 * time.Minute

	js := &JobState{}
	if js.StuckSince(threshold, now) {
		t.Fatal("job with no activity should never be stuck")
	}

	js.Touch(now.Add(-threshold))
	if !js.StuckSince(threshold, now) {
		t.Fatal("job at exactly the threshold should be stuck")
	}

	js.Touch(now.Add(-threshold + time.Second))
	if js.StuckSince(threshold, now) {
		t.Fatal("job inside the threshold should not be stuck")
	}
}

func TestWatcherStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watcher.json")

	ws, err := LoadWatcher(path)
	if err != nil {
		t.Fatalf("LoadWatcher failed: %v", err)
	}
	if ws.Offset != 0 {
		t.Fatalf("missing file should mean offset 0, got %d", ws.Offset)
	}

	if err := SaveWatcher(path, WatcherState{Offset: 512}); err != nil {
		t.Fatalf("SaveWatcher failed: %v", err)
	}
	ws, err = LoadWatcher(path)
	if err != nil {
		t.Fatalf("LoadWatcher failed: %v", err)
	}
	if ws.Offset != 512 {
		t.Fatalf("unexpected offset: %d", ws.Offset)
	}
}

func TestLoadWatcherRejectsNegativeOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watcher.json")
	if err := os.WriteFile(path, []byte(`{"offset":-5}`), 0644); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	if _, err := LoadWatcher(path); err == nil {
		t.Fatal("LoadWatcher accepted negative offset")
	}
}
