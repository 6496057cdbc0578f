package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amarbel-llc/scenemcp/internal/client"
	"github.com/amarbel-llc/scenemcp/pkg/namematch"
)

type ToolHandler func(ctx context.Context, args json.RawMessage) (*ToolCallResult, error)

// ToolRegistry holds the tools exposed to the MCP client. The allow-list
// matcher decides which registered tools are visible and callable.
type ToolRegistry struct {
	tools    []Tool
	handlers map[string]ToolHandler
	bridge   *client.Client
	allowed  *namematch.Matcher
}

func NewToolRegistry(bridge *client.Client, allowed *namematch.Matcher) *ToolRegistry {
	r := &ToolRegistry{
		handlers: make(map[string]ToolHandler),
		bridge:   bridge,
		allowed:  allowed,
	}
	r.registerBuiltinTools()
	return r
}

func (r *ToolRegistry) List() []Tool {
	var out []Tool
	for _, t := range r.tools {
		if r.allowed.Matches(t.Name) {
			out = append(out, t)
		}
	}
	return out
}

func (r *ToolRegistry) Call(ctx context.Context, name string, args json.RawMessage) (*ToolCallResult, error) {
	handler, ok := r.handlers[name]
	if !ok || !r.allowed.Matches(name) {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", name)), nil
	}
	return handler(ctx, args)
}

func (r *ToolRegistry) register(name, description string, schema json.RawMessage, handler ToolHandler) {
	r.tools = append(r.tools, Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	})
	r.handlers[name] = handler
}

func (r *ToolRegistry) registerBuiltinTools() {
	r.register("host_ping", "Check that the scene host's command executor is reachable",
		json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
		r.handlePing)

	r.register("execute_script", "Execute script text in the scene host and return its captured stdout. The script runs unsandboxed with full access to live host state.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"code": {"type": "string", "description": "Script text to execute in the host"}
			},
			"required": ["code"]
		}`),
		r.handleExecuteScript)

	r.register("host_info", "Get the scene host's version and current scene identity",
		json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
		r.handleHostInfo)
}

type executeScriptArgs struct {
	Code string `json:"code"`
}

func (r *ToolRegistry) handlePing(ctx context.Context, args json.RawMessage) (*ToolCallResult, error) {
	if err := r.bridge.Ping(ctx); err != nil {
		return ErrorResult(err.Error()), nil
	}
	return TextResult("pong"), nil
}

func (r *ToolRegistry) handleExecuteScript(ctx context.Context, args json.RawMessage) (*ToolCallResult, error) {
	var a executeScriptArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return ErrorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	stdout, err := r.bridge.ExecuteScript(ctx, a.Code)
	if err != nil {
		var remoteErr *client.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Traceback != "" {
			return ErrorResult(fmt.Sprintf("%s\n%s", remoteErr.Message, remoteErr.Traceback)), nil
		}
		return ErrorResult(err.Error()), nil
	}
	return TextResult(stdout), nil
}

// hostInfoScript prints exactly one JSON line; the client decodes it
// directly instead of scanning stdout for a marker.
const hostInfoScript = `import bpy
import json
print(json.dumps({
    "version": bpy.app.version_string,
    "file": bpy.data.filepath,
    "scene": bpy.context.scene.name,
}))
`

func (r *ToolRegistry) handleHostInfo(ctx context.Context, args json.RawMessage) (*ToolCallResult, error) {
	var info map[string]any
	if err := r.bridge.ScriptJSON(ctx, hostInfoScript, &info); err != nil {
		return ErrorResult(err.Error()), nil
	}

	pretty, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return ErrorResult(err.Error()), nil
	}
	return TextResult(string(pretty)), nil
}
