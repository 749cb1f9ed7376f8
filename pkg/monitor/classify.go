package monitor

import (
	"strings"

	"github.com/vigil-run/vigil/pkg/remote"
)

// StatusClass groups remote status strings into the four cases the poll
// cycle branches on. Vocabulary drift on the remote side (new terminal
// statuses and the like) is handled by extending the table below.
type StatusClass int

const (
	// ClassRunning covers every status not otherwise classified.
	ClassRunning StatusClass = iota
	// ClassSuccessTerminal is the successful completion status.
	ClassSuccessTerminal
	// ClassFailureTerminal covers failed, errored, and cancelled jobs.
	ClassFailureTerminal
	// ClassAwaitingInput means the remote side is explicitly blocked on
	// human input.
	ClassAwaitingInput
)

var statusClasses = map[string]StatusClass{
	"COMPLETED": ClassSuccessTerminal,

	"FAILED":    ClassFailureTerminal,
	"ERROR":     ClassFailureTerminal,
	"CANCELLED": ClassFailureTerminal,

	"AWAITING_USER_FEEDBACK": ClassAwaitingInput,
	"AWAITING_INPUT":         ClassAwaitingInput,
	"PAUSED_FOR_QUESTION":    ClassAwaitingInput,
}

// Classify maps a remote status string to its class. Matching is
// case-insensitive; unknown statuses classify as running.
func Classify(status string) StatusClass {
	if class, ok := statusClasses[strings.ToUpper(strings.TrimSpace(status))]; ok {
		return class
	}
	return ClassRunning
}

// IsQuestion reports whether an activity entry needs a human-level answer.
// Explicit question/needs_input tags win; otherwise assistant-authored text
// containing a question mark counts.
func IsQuestion(msg remote.Message) bool {
	for _, tag := range msg.Tags {
		switch strings.ToLower(tag) {
		case "question", "needs_input":
			return true
		}
	}
	return strings.EqualFold(msg.Role, "assistant") && strings.Contains(msg.Content, "?")
}

// FirstActionable returns the first question entry on a page, if any.
func FirstActionable(msgs []remote.Message) (remote.Message, bool) {
	for _, msg := range msgs {
		if IsQuestion(msg) {
			return msg, true
		}
	}
	return remote.Message{}, false
}
