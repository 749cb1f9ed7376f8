package log

import (
	"testing"
)

func TestMapLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		expected string
		wantErr  bool
	}{
		{"debug level", LevelDebug, "debug", false},
		{"info level", LevelInfo, "info", false},
		{"empty level defaults to info", Level(""), "info", false},
		{"warn level", LevelWarn, "warn", false},
		{"error level", LevelError, "error", false},
		{"unknown level is an error", Level("verbose"), "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zapLevel, err := mapLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("mapLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if zapLevel.String() != tt.expected {
				t.Errorf("mapLevel() = %v, want %v", zapLevel.String(), tt.expected)
			}
		})
	}
}

func TestInitWithConfig(t *testing.T) {
	Reset()
	defer Reset()

	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		t.Run(string(level), func(t *testing.T) {
			Reset()
			if err := Init(Config{Level: level, Format: "console"}); err != nil {
				t.Errorf("Init() error = %v", err)
			}
			if Get() == nil {
				t.Error("Get() returned nil logger")
			}
		})
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	Reset()
	defer Reset()

	if err := Init(Config{Level: LevelInfo, Format: "xml"}); err == nil {
		t.Fatal("Init() accepted unknown format")
	}
}

func TestJSONFormat(t *testing.T) {
	Reset()
	defer Reset()

	if err := Init(Config{Level: LevelDebug, Format: "json"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// Should not panic through any of the package-level helpers.
	Debug("debug message", "key", "value")
	Info("info message", "key", "value")
	Warn("warn message")
	Error("error message")
	Debugf("formatted %s", "debug")
	Infof("formatted %s", "info")
	Warnf("formatted %s", "warn")
	Errorf("formatted %s", "error")
	With("job_id", "job-1").Info("scoped")
}

func TestGetWithoutInit(t *testing.T) {
	Reset()
	defer Reset()

	if Get() == nil {
		t.Fatal("Get() returned nil logger without Init")
	}
}
