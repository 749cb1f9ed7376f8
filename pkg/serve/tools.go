package serve

import (
	"context"
	"encoding/json"

	"github.com/vigil-run/vigil/pkg/remote"
)

// Remote is the slice of the API client the tools call through.
type Remote interface {
	CreateJob(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
	JobStatus(ctx context.Context, jobID string) (*remote.Status, error)
	Messages(ctx context.Context, jobID, cursor string) (*remote.MessagePage, error)
	SendMessage(ctx context.Context, jobID string, message json.RawMessage) (json.RawMessage, error)
	Artifacts(ctx context.Context, jobID string) (json.RawMessage, error)
	RequestRetry(ctx context.Context, jobID string) (json.RawMessage, error)
	MergePR(ctx context.Context, jobID string, payload json.RawMessage) (json.RawMessage, error)
	CancelJob(ctx context.Context, jobID string) (json.RawMessage, error)
	ListJobs(ctx context.Context, repo string, limit int) (json.RawMessage, error)
}

// Tool describes one callable tool in the tools/list response.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

func toolCatalog() []Tool {
	return []Tool{
		{
			Name:        "vigil_create_job",
			Description: "Create a new remote job",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"repo": {"type": "string", "description": "Repository in owner/repo format"},
					"branch": {"type": "string", "description": "Target branch name"},
					"prompt": {"type": "string", "description": "Task description for the remote agent"},
					"constraints": {"type": "object", "description": "Optional constraints for the job"}
				},
				"additionalProperties": true
			}`),
		},
		{
			Name:        "vigil_register_job",
			Description: "Register a job ID with the local monitor registry for tracking",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"job_id": {"type": "string", "description": "The job ID to register"},
					"jobs_path": {"type": "string", "description": "Registry file to append to, defaults to the server's registry"},
					"metadata": {"type": "object", "description": "Optional metadata to store with the job"}
				},
				"required": ["job_id"]
			}`),
		},
		{
			Name:        "vigil_get_job",
			Description: "Fetch job metadata and current status",
			InputSchema: jobIDSchema,
		},
		{
			Name:        "vigil_get_messages",
			Description: "Fetch new job messages since a cursor position",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"job_id": {"type": "string", "description": "The job ID"},
					"cursor": {"type": "string", "description": "Optional cursor for pagination"}
				},
				"required": ["job_id"]
			}`),
		},
		{
			Name:        "vigil_send_message",
			Description: "Send a clarification or instruction to a running job",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"job_id": {"type": "string", "description": "The job ID"},
					"message": {"type": "object", "description": "Message content to send"}
				},
				"required": ["job_id", "message"]
			}`),
		},
		{
			Name:        "vigil_get_artifacts",
			Description: "Fetch job artifacts (diff, patch, PR URL)",
			InputSchema: jobIDSchema,
		},
		{
			Name:        "vigil_request_retry",
			Description: "Request a retry or re-run of a failed job",
			InputSchema: jobIDSchema,
		},
		{
			Name:        "vigil_merge_pr",
			Description: "Merge the PR associated with a completed job",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"job_id": {"type": "string", "description": "The job ID"},
					"payload": {"type": "object", "description": "Optional merge parameters"}
				},
				"required": ["job_id"]
			}`),
		},
		{
			Name:        "vigil_cancel_job",
			Description: "Cancel a running job",
			InputSchema: jobIDSchema,
		},
		{
			Name:        "vigil_list_jobs",
			Description: "List all jobs for a repository",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"repo": {"type": "string", "description": "Repository in owner/repo format"},
					"limit": {"type": "integer", "description": "Maximum number of jobs to return"}
				},
				"required": ["repo"]
			}`),
		},
	}
}

var jobIDSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"job_id": {"type": "string", "description": "The job ID"}
	},
	"required": ["job_id"]
}`)
