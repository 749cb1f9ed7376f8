package monitor

import (
	"testing"

	"github.com/vigil-run/vigil/pkg/remote"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status string
		want   StatusClass
	}{
		{"COMPLETED", ClassSuccessTerminal},
		{"completed", ClassSuccessTerminal},
		{" COMPLETED ", ClassSuccessTerminal},
		{"FAILED", ClassFailureTerminal},
		{"ERROR", ClassFailureTerminal},
		{"CANCELLED", ClassFailureTerminal},
		{"AWAITING_USER_FEEDBACK", ClassAwaitingInput},
		{"AWAITING_INPUT", ClassAwaitingInput},
		{"PAUSED_FOR_QUESTION", ClassAwaitingInput},
		{"RUNNING", ClassRunning},
		{"PLANNING", ClassRunning},
		{"", ClassRunning},
		{"SOME_FUTURE_STATUS", ClassRunning},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := Classify(tt.status); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestIsQuestion(t *testing.T) {
	tests := []struct {
		name string
		msg  remote.Message
		want bool
	}{
		{
			name: "question tag",
			msg:  remote.Message{Role: "system", Content: "input needed", Tags: []string{"question"}},
			want: true,
		},
		{
			name: "needs_input tag case-insensitive",
			msg:  remote.Message{Tags: []string{"NEEDS_INPUT"}},
			want: true,
		},
		{
			name: "assistant text with question mark",
			msg:  remote.Message{Role: "assistant", Content: "Should I proceed?"},
			want: true,
		},
		{
			name: "assistant text without question mark",
			msg:  remote.Message{Role: "assistant", Content: "Working on it."},
			want: false,
		},
		{
			name: "user text with question mark",
			msg:  remote.Message{Role: "user", Content: "Why?"},
			want: false,
		},
		{
			name: "unrelated tags",
			msg:  remote.Message{Role: "assistant", Content: "done", Tags: []string{"progress"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuestion(tt.msg); got != tt.want {
				t.Errorf("IsQuestion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstActionable(t *testing.T) {
	msgs := []remote.Message{
		{Role: "assistant", Content: "Starting."},
		{Role: "assistant", Content: "Which branch should I target?"},
		{Role: "assistant", Content: "Also, which CI?"},
	}
	msg, ok := FirstActionable(msgs)
	if !ok {
		t.Fatal("expected an actionable message")
	}
	if msg.Content != "Which branch should I target?" {
		t.Fatalf("expected the first actionable entry, got %q", msg.Content)
	}

	if _, ok := FirstActionable(nil); ok {
		t.Fatal("empty page should have no actionable message")
	}
}
