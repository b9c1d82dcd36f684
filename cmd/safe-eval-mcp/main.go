// Command safe-eval-mcp runs the per-response factuality evaluator as a
// Model Context Protocol server over stdio.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/safe-eval/internal/atomicfacts"
	"github.com/hurttlocker/safe-eval/internal/config"
	"github.com/hurttlocker/safe-eval/internal/decontext"
	"github.com/hurttlocker/safe-eval/internal/eval"
	"github.com/hurttlocker/safe-eval/internal/evidence"
	"github.com/hurttlocker/safe-eval/internal/llm"
	"github.com/hurttlocker/safe-eval/internal/logging"
	"github.com/hurttlocker/safe-eval/internal/mcpserver"
	"github.com/hurttlocker/safe-eval/internal/relevance"
	"github.com/hurttlocker/safe-eval/internal/verdict"
)

var version = "0.1.0-dev"

func main() {
	var configPath string
	var debug bool
	flag.StringVar(&configPath, "config", "", "path to config.yaml (default ~/.safe-eval/config.yaml)")
	flag.BoolVar(&debug, "debug", false, "enable development-mode logging")
	flag.Parse()

	if err := logging.Init(debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	cfg, err := config.ResolveConfig(config.ResolveOptions{ConfigPath: configPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config: %v\n", err)
		os.Exit(1)
	}

	orchestrator, err := buildOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building evaluator: %v\n", err)
		os.Exit(1)
	}

	s := mcpserver.NewServer(mcpserver.ServerConfig{Evaluator: orchestrator, Version: version})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildOrchestrator(cfg config.ResolvedConfig) (*eval.Orchestrator, error) {
	providerCfg, err := llm.ParseModelName(cfg.RaterModel.Value)
	if err != nil {
		return nil, err
	}
	if key := cfg.APIKeyForProvider(cfg.RaterModel.Value); key.Value != "" {
		providerCfg.APIKey = key.Value
	}
	provider, err := llm.NewProvider(providerCfg)
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(provider)

	maxSteps := cfg.MaxSteps.IntValue(5)
	maxRetries := cfg.MaxRetries.IntValue(10)
	pipelineRetries := cfg.PipelineRetries.IntValue(3)
	maxClaims := cfg.MaxClaims.IntValue(100)

	serper := evidence.NewSerperClient(cfg.SearchAPIKey.Value)
	cache, err := evidence.OpenCache(cfg.CachePath.Value, serper)
	if err != nil {
		return nil, err
	}

	facts := atomicfacts.NewGenerator(client)
	dec := decontext.New(client, maxRetries)
	rel := relevance.New(client, maxRetries)
	agent := evidence.New(client, cache, maxSteps, maxRetries)
	ver := verdict.New(client, maxRetries)

	return eval.New(facts, dec, rel, agent, ver, maxClaims, pipelineRetries), nil
}
