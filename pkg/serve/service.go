// Package serve exposes the remote job API and the local registry as MCP
// tools over stdio JSON-RPC. One request per line in, one response per
// line out; stdout carries nothing else.
package serve

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vigil-run/vigil/pkg/log"
	"github.com/vigil-run/vigil/pkg/registry"
)

const (
	defaultServerName = "vigil-mcp"
	protocolVersion   = "2024-11-05"

	// Long prompts travel inside tools/call params.
	maxRequestBytes = 4 * 1024 * 1024
)

// Config carries the server's collaborators.
type Config struct {
	// Remote executes the job API tools.
	Remote Remote
	// RegistryPath is the default registry vigil_register_job appends to
	// when the call does not name one.
	RegistryPath string
	// Version is reported in the initialize response.
	Version string
}

// Server is a stdio MCP server.
type Server struct {
	cfg      Config
	registry *MethodRegistry
}

// New builds a server and registers its protocol methods.
func New(cfg Config) (*Server, error) {
	if cfg.Remote == nil {
		return nil, errors.New("remote client is required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{cfg: cfg, registry: NewMethodRegistry()}
	s.registry.RegisterMethod("initialize", s.handleInitialize)
	s.registry.RegisterMethod("tools/list", s.handleToolsList)
	s.registry.RegisterMethod("tools/call", s.handleToolsCall)
	return s, nil
}

// Run reads newline-delimited JSON-RPC requests from in until EOF or
// cancellation, writing one response per request to out. Requests without
// an id are notifications and get no response.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		req, rpcErr := ParseJSONRPCRequest(line)
		if rpcErr != nil {
			if err := WriteJSONRPCResponse(out, nil, nil, rpcErr); err != nil {
				return err
			}
			continue
		}

		result, rpcErr := s.registry.Dispatch(ctx, req.Method, req.Params)
		if req.ID == nil {
			if rpcErr != nil {
				log.Debugf("notification %s: %s", req.Method, rpcErr.Message)
			}
			continue
		}
		if err := WriteJSONRPCResponse(out, req.ID, result, rpcErr); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request stream: %w", err)
	}
	return nil
}

func (s *Server) handleInitialize(_ context.Context, _ json.RawMessage) (interface{}, *JSONRPCError) {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"serverInfo": map[string]string{
			"name":    defaultServerName,
			"version": s.cfg.Version,
		},
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}, nil
}

func (s *Server) handleToolsList(_ context.Context, _ json.RawMessage) (interface{}, *JSONRPCError) {
	return map[string]interface{}{"tools": toolCatalog()}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, *JSONRPCError) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if len(params) == 0 {
		return nil, NewJSONRPCError(ErrCodeInvalidParams, "params are required")
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, NewJSONRPCError(ErrCodeInvalidParams, ErrMsgInvalidParams)
	}
	if call.Name == "" {
		return nil, NewJSONRPCError(ErrCodeInvalidParams, "tool name is required")
	}

	log.Debugf("tools/call %s", call.Name)
	result, rpcErr := s.callTool(ctx, call.Name, call.Arguments)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]interface{}{"content": result}, nil
}

func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (interface{}, *JSONRPCError) {
	switch name {
	case "vigil_create_job":
		return s.remoteResult(s.cfg.Remote.CreateJob(ctx, args))
	case "vigil_register_job":
		return s.registerJob(args)
	case "vigil_get_job":
		jobID, rpcErr := parseJobID(args)
		if rpcErr != nil {
			return nil, rpcErr
		}
		status, err := s.cfg.Remote.JobStatus(ctx, jobID)
		if err != nil {
			return nil, NewJSONRPCError(ErrCodeToolError, err.Error())
		}
		return status.Payload, nil
	case "vigil_get_messages":
		var p struct {
			JobID  string `json:"job_id"`
			Cursor string `json:"cursor"`
		}
		if rpcErr := parseArgs(args, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.JobID == "" {
			return nil, NewJSONRPCError(ErrCodeInvalidParams, "job_id is required")
		}
		page, err := s.cfg.Remote.Messages(ctx, p.JobID, p.Cursor)
		if err != nil {
			return nil, NewJSONRPCError(ErrCodeToolError, err.Error())
		}
		return page, nil
	case "vigil_send_message":
		var p struct {
			JobID   string          `json:"job_id"`
			Message json.RawMessage `json:"message"`
		}
		if rpcErr := parseArgs(args, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.JobID == "" || len(p.Message) == 0 {
			return nil, NewJSONRPCError(ErrCodeInvalidParams, "job_id and message are required")
		}
		return s.remoteResult(s.cfg.Remote.SendMessage(ctx, p.JobID, p.Message))
	case "vigil_get_artifacts":
		jobID, rpcErr := parseJobID(args)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return s.remoteResult(s.cfg.Remote.Artifacts(ctx, jobID))
	case "vigil_request_retry":
		jobID, rpcErr := parseJobID(args)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return s.remoteResult(s.cfg.Remote.RequestRetry(ctx, jobID))
	case "vigil_merge_pr":
		var p struct {
			JobID   string          `json:"job_id"`
			Payload json.RawMessage `json:"payload"`
		}
		if rpcErr := parseArgs(args, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.JobID == "" {
			return nil, NewJSONRPCError(ErrCodeInvalidParams, "job_id is required")
		}
		return s.remoteResult(s.cfg.Remote.MergePR(ctx, p.JobID, p.Payload))
	case "vigil_cancel_job":
		jobID, rpcErr := parseJobID(args)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return s.remoteResult(s.cfg.Remote.CancelJob(ctx, jobID))
	case "vigil_list_jobs":
		var p struct {
			Repo  string `json:"repo"`
			Limit int    `json:"limit"`
		}
		if rpcErr := parseArgs(args, &p); rpcErr != nil {
			return nil, rpcErr
		}
		if p.Repo == "" {
			return nil, NewJSONRPCError(ErrCodeInvalidParams, "repo is required")
		}
		return s.remoteResult(s.cfg.Remote.ListJobs(ctx, p.Repo, p.Limit))
	}
	return nil, NewJSONRPCError(ErrCodeInvalidParams, fmt.Sprintf("unknown tool %q", name))
}

func (s *Server) registerJob(args json.RawMessage) (interface{}, *JSONRPCError) {
	var p struct {
		JobID    string                 `json:"job_id"`
		JobsPath string                 `json:"jobs_path"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if rpcErr := parseArgs(args, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.JobID == "" {
		return nil, NewJSONRPCError(ErrCodeInvalidParams, "job_id is required")
	}
	path := p.JobsPath
	if path == "" {
		path = s.cfg.RegistryPath
	}
	if path == "" {
		return nil, NewJSONRPCError(ErrCodeInvalidParams, "jobs_path is required when the server has no configured registry")
	}

	if err := registry.Append(path, registry.Job{JobID: p.JobID, Metadata: p.Metadata}); err != nil {
		return nil, NewJSONRPCError(ErrCodeToolError, err.Error())
	}
	return map[string]interface{}{"registered": true, "job_id": p.JobID}, nil
}

func (s *Server) remoteResult(raw json.RawMessage, err error) (interface{}, *JSONRPCError) {
	if err != nil {
		return nil, NewJSONRPCError(ErrCodeToolError, err.Error())
	}
	if raw == nil {
		// 204-style responses still produce a well-formed content value.
		return json.RawMessage("null"), nil
	}
	return raw, nil
}

func parseArgs(args json.RawMessage, into interface{}) *JSONRPCError {
	if len(args) == 0 {
		return NewJSONRPCError(ErrCodeInvalidParams, "arguments are required")
	}
	if err := json.Unmarshal(args, into); err != nil {
		return NewJSONRPCError(ErrCodeInvalidParams, ErrMsgInvalidParams)
	}
	return nil
}

func parseJobID(args json.RawMessage) (string, *JSONRPCError) {
	var p struct {
		JobID string `json:"job_id"`
	}
	if rpcErr := parseArgs(args, &p); rpcErr != nil {
		return "", rpcErr
	}
	if p.JobID == "" {
		return "", NewJSONRPCError(ErrCodeInvalidParams, "job_id is required")
	}
	return p.JobID, nil
}
