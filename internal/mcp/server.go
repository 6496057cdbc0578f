// Package mcp implements the protocol server that exposes the scene bridge
// to an AI-assistant client over stdio: newline-delimited JSON-RPC carrying
// the tool and resource catalogue, with every call answered by one command
// round trip to the host executor.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

// Transport moves one MCP message at a time.
type Transport interface {
	Read() (*Message, error)
	Write(*Message) error
}

type Server struct {
	transport Transport
	tools     *ToolRegistry
	resources *ResourceRegistry
	info      Implementation
}

func NewServer(transport Transport, tools *ToolRegistry, resources *ResourceRegistry) *Server {
	return &Server{
		transport: transport,
		tools:     tools,
		resources: resources,
		info: Implementation{
			Name:    "scenemcp",
			Version: "1.0.0",
		},
	}
}

// Run serves requests until the transport reaches EOF or the context is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := s.transport.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		if msg.IsNotification() {
			// initialized and cancellation notifications need no reply.
			continue
		}
		if !msg.IsRequest() {
			continue
		}

		resp := s.handleRequest(ctx, msg)
		if err := s.transport.Write(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, msg *Message) *Message {
	log.Debug().Str("method", msg.Method).Msg("mcp: request")

	result, rpcErr := s.dispatch(ctx, msg)
	if rpcErr != nil {
		log.Warn().Str("method", msg.Method).Str("error", rpcErr.Message).Msg("mcp: request failed")
		return newErrorResponse(*msg.ID, rpcErr.Code, rpcErr.Message)
	}

	resp, err := newResponse(*msg.ID, result)
	if err != nil {
		return newErrorResponse(*msg.ID, CodeInternalError, err.Error())
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, msg *Message) (any, *RPCError) {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg.Params)
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return &ListToolsResult{Tools: s.tools.List()}, nil
	case "tools/call":
		return s.handleToolCall(ctx, msg.Params)
	case "resources/list":
		return &ListResourcesResult{Resources: s.resources.List()}, nil
	case "resources/read":
		return s.handleResourceRead(ctx, msg.Params)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", msg.Method)}
	}
}

func (s *Server) handleInitialize(params json.RawMessage) (any, *RPCError) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
		}
	}

	log.Info().Str("client", p.ClientInfo.Name).Str("version", p.ClientInfo.Version).Msg("mcp: client initialized")

	return &InitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      s.info,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{},
			Resources: &ResourcesCapability{},
		},
	}, nil
}

func (s *Server) handleToolCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	result, err := s.tools.Call(ctx, p.Name, p.Arguments)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return result, nil
}

func (s *Server) handleResourceRead(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var p ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	result, err := s.resources.Read(ctx, p.URI)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return result, nil
}
