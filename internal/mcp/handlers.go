package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/agent"
	"github.com/valet-cli/valet/internal/config"
	"github.com/valet-cli/valet/internal/convert"
	verrors "github.com/valet-cli/valet/internal/errors"
	"github.com/valet-cli/valet/internal/run"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	cfg        config.Config
	log        *zap.Logger
	engine     *convert.Engine
	dispatcher *agent.Dispatcher
	runner     *agent.Runner
	exec       *run.Executor
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg config.Config, log *zap.Logger) *Handlers {
	return &Handlers{
		cfg:        cfg,
		log:        log,
		engine:     convert.NewEngine(cfg, log),
		dispatcher: agent.NewDispatcher(cfg, log),
		runner:     agent.NewRunner(cfg, log),
		exec:       run.NewExecutor(cfg, log),
	}
}

// ConvertRequest represents the arguments for file_convert.
type ConvertRequest struct {
	InputFile    string `json:"input_file"`
	TargetFormat string `json:"target_format"`
}

// DispatchRequest represents the arguments for agent_dispatch.
type DispatchRequest struct {
	Agent string   `json:"agent"`
	Query string   `json:"query"`
	Paths []string `json:"paths,omitempty"`
}

// ExecuteRequest represents the arguments for agent_execute.
type ExecuteRequest struct {
	Plan string `json:"plan"`
}

// RunRequest represents the arguments for command_run.
type RunRequest struct {
	Command string `json:"command"`
}

// HandleConvert handles the file_convert tool call.
func (h *Handlers) HandleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConvertRequest](req)
	if err != nil {
		return errorResult(verrors.NewInvalidRequest(err.Error())), nil
	}
	if input.InputFile == "" || input.TargetFormat == "" {
		return errorResult(verrors.NewInvalidRequest("input_file and target_format are required")), nil
	}

	result, err := h.engine.Convert(ctx, input.InputFile, input.TargetFormat)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"output_path":  result.OutputPath,
		"tool":         string(result.Tool),
		"size":         result.Size,
		"empty_output": result.EmptyOutput,
	})
}

// HandleDispatch handles the agent_dispatch tool call.
func (h *Handlers) HandleDispatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DispatchRequest](req)
	if err != nil {
		return errorResult(verrors.NewInvalidRequest(err.Error())), nil
	}

	res, err := h.dispatcher.Dispatch(ctx, input.Agent, input.Query, input.Paths)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(res.Plan())
}

// HandleExecute handles the agent_execute tool call.
func (h *Handlers) HandleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExecuteRequest](req)
	if err != nil {
		return errorResult(verrors.NewInvalidRequest(err.Error())), nil
	}

	report, err := h.runner.ExecuteJSON(ctx, input.Plan)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"report": report})
}

// HandleRun handles the command_run tool call.
func (h *Handlers) HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunRequest](req)
	if err != nil {
		return errorResult(verrors.NewInvalidRequest(err.Error())), nil
	}

	res := h.exec.Shell(ctx, input.Command)
	if res.State == run.StateBlocked {
		return errorResult(verrors.NewBlocked(res.Rule.Reason)), nil
	}
	return successResult(map[string]any{
		"state":  string(res.State),
		"stdout": res.Stdout,
		"stderr": res.Stderr,
	})
}

// errorResult converts an error to a structured MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vErr, ok := err.(*verrors.ValetError); ok {
		errorObj := map[string]any{
			"code":    vErr.Code,
			"message": vErr.Message,
		}
		// Internal errors keep their details out of the wire payload.
		if vErr.Code != verrors.ErrInternal && vErr.Details != nil {
			errorObj["details"] = vErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult converts data to a JSON MCP result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
