// Package mcpserver exposes the GoodData tools over the Model Context
// Protocol: JSON-RPC 2.0 on newline-delimited stdio. The server holds
// a static tool table; read tools carry read-only hints and the write
// tools (apply, restore) carry destructive hints so agent clients can
// gate them behind confirmation.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Handler executes one tool call. The returned value is serialized to
// JSON and delivered as a text content block; a non-nil error becomes
// an isError result, never a server crash.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is one entry in the server's tool table.
type Tool struct {
	Name        string
	Description string
	InputSchema any
	ReadOnly    bool
	Destructive bool
	Idempotent  bool
	Handler     Handler
}

// Server serves MCP requests from a stream of newline-delimited
// JSON-RPC messages.
type Server struct {
	name        string
	version     string
	tools       []Tool
	byName      map[string]*Tool
	log         *slog.Logger
	initialized bool
}

// New creates a server over the given tool table.
func New(name, version string, tools []Tool, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		name:    name,
		version: version,
		tools:   tools,
		byName:  make(map[string]*Tool, len(tools)),
		log:     log,
	}
	for i := range s.tools {
		s.byName[s.tools[i].Name] = &s.tools[i]
	}
	return s
}

// Serve runs the server on stdin/stdout until EOF.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}

// Run processes requests from input and writes responses to output
// until input reaches EOF. One request per line.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// Tool results carrying full insight documents can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return fmt.Errorf("writing parse error response: %w", writeErr)
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return fmt.Errorf("writing version error response: %w", writeErr)
				}
			}
			continue
		}

		if req.isNotification() {
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}
	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	s.initialized = true
	s.log.Debug("mcp client connected",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version)

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{Name: s.name, Version: s.version},
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for i := range s.tools {
		t := &s.tools[i]
		descriptions = append(descriptions, toolDescription{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Annotations: &toolAnnotations{
				ReadOnlyHint:    boolPtr(t.ReadOnly),
				DestructiveHint: boolPtr(t.Destructive),
				IdempotentHint:  boolPtr(t.Idempotent),
			},
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.byName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	value, runErr := t.Handler(ctx, params.Arguments)
	if runErr != nil {
		s.log.Warn("tool call failed", "tool", t.Name, "error", runErr)
		return writeResult(encoder, req.ID, toolsCallResult{
			IsError: true,
			Content: []contentBlock{{Type: "text", Text: runErr.Error()}},
		})
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("tool result not serializable", "tool", t.Name, "error", err)
		return writeResult(encoder, req.ID, toolsCallResult{
			IsError: true,
			Content: []contentBlock{{Type: "text", Text: "encoding tool result: " + err.Error()}},
		})
	}
	return writeResult(encoder, req.ID, toolsCallResult{
		Content: []contentBlock{{Type: "text", Text: string(payload)}},
	})
}

func boolPtr(value bool) *bool {
	return &value
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
