// Package mcpserve implements the stdio protocol bridge that backend
// configs point at. It speaks newline-delimited JSON-RPC 2.0 and exposes a
// single request_approval tool backed by an approval service.
package mcpserve

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/nibzard/agentmux/internal/approvals"
	"github.com/nibzard/agentmux/internal/msgstore"
)

const protocolVersion = "2024-11-05"

// Version mirrors the binary version for the initialize handshake.
var Version = "dev"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
)

// Server bridges approval requests from a backend CLI to the approval
// service, one JSON-RPC message per line.
type Server struct {
	svc approvals.Service
	in  io.Reader
	out io.Writer
}

// New creates a server reading requests from in and writing responses to
// out.
func New(svc approvals.Service, in io.Reader, out io.Writer) *Server {
	return &Server{svc: svc, in: in, out: out}
}

// Run serves until the input stream closes or ctx is canceled between
// messages.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, msgstore.ScanBufferSize), msgstore.MaxScanTokenSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Warn("discarding malformed message", "err", err)
			continue
		}
		if err := s.handle(ctx, req); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) handle(ctx context.Context, req rpcRequest) error {
	switch req.Method {
	case "initialize":
		return s.respond(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "agentmux", "version": Version},
		})
	case "notifications/initialized", "notifications/cancelled":
		return nil
	case "ping":
		return s.respond(req.ID, map[string]any{})
	case "tools/list":
		return s.respond(req.ID, map[string]any{"tools": []any{approvalToolSpec()}})
	case "tools/call":
		return s.handleToolCall(ctx, req)
	}

	if req.ID == nil {
		// Unknown notification, nothing to answer.
		return nil
	}
	return s.respondError(req.ID, codeMethodNotFound, "method not found: "+req.Method)
}

func approvalToolSpec() map[string]any {
	return map[string]any{
		"name":        "request_approval",
		"description": "Ask whether a tool invocation is permitted before running it.",
		"inputSchema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool_name":  map[string]any{"type": "string"},
				"input":      map[string]any{"type": "string"},
				"session_id": map[string]any{"type": "string"},
			},
			"required": []any{"tool_name"},
		},
	}
}

func (s *Server) handleToolCall(ctx context.Context, req rpcRequest) error {
	var params struct {
		Name      string `json:"name"`
		Arguments struct {
			ToolName  string `json:"tool_name"`
			Input     string `json:"input"`
			SessionID string `json:"session_id"`
		} `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.respondError(req.ID, codeInvalidParams, "invalid params: "+err.Error())
	}
	if params.Name != "request_approval" {
		return s.respondError(req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	decision, err := s.svc.Approve(ctx, approvals.Request{
		ToolName:  params.Arguments.ToolName,
		Input:     params.Arguments.Input,
		SessionID: params.Arguments.SessionID,
	})
	if err != nil {
		return s.respond(req.ID, toolResult("approval failed: "+err.Error(), true))
	}
	return s.respond(req.ID, toolResult(string(decision), decision == approvals.DecisionDenied))
}

func toolResult(text string, isError bool) map[string]any {
	return map[string]any{
		"content": []any{map[string]any{"type": "text", "text": text}},
		"isError": isError,
	}
}

func (s *Server) respond(id json.RawMessage, result any) error {
	return s.write(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) respondError(id json.RawMessage, code int, message string) error {
	return s.write(rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

func (s *Server) write(resp rpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = s.out.Write(append(data, '\n'))
	return err
}
