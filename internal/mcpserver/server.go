// Package mcpserver exposes the per-response evaluator as a Model Context
// Protocol tool: server.NewMCPServer plus one mcp.NewTool/s.AddTool
// registration for the single evaluate_response operation.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/safe-eval/internal/eval"
)

// evalMu serializes tool calls against the single SQLite handle backing
// the evidence cache underneath the evaluator: mcp-go dispatches tool
// handlers concurrently via goroutines, but the cache is one *sql.DB.
var evalMu sync.Mutex

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Evaluator eval.ResponseEvaluator
	Version   string
}

// NewServer builds a configured MCP server exposing evaluate_response.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"SAFE Eval",
		ver,
		server.WithToolCapabilities(false),
	)

	registerEvaluateResponseTool(s, cfg.Evaluator)

	return s
}

func registerEvaluateResponseTool(s *server.MCPServer, evaluator eval.ResponseEvaluator) {
	tool := mcp.NewTool("evaluate_response",
		mcp.WithDescription("Rate a single model response for factuality using search-augmented fact checking (SAFE). Breaks the response into atomic facts, decontextualizes and relevance-filters each one, gathers web evidence, and returns a supported/not-supported/irrelevant verdict per fact plus an aggregate F1@K score."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The prompt the response is answering"),
		),
		mcp.WithString("response",
			mcp.Required(),
			mcp.Description("The model response to fact-check"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError("prompt is required"), nil
		}
		response, err := req.RequireString("response")
		if err != nil {
			return mcp.NewToolResultError("response is required"), nil
		}

		evalMu.Lock()
		result, err := evaluator.Evaluate(ctx, eval.ResponseRecord{Prompt: prompt, Response: response})
		evalMu.Unlock()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("evaluation error: %v", err)), nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	})
}
