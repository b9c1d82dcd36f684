// Package config resolves safe-eval's settings through a precedence
// chain — config file, then environment variable, then CLI flag — and
// records, for every resolved value, which layer won and which concrete
// key/flag supplied it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue records a setting's final value plus where it came from, so
// the question "why did this run use model X" can be answered without
// re-deriving the precedence chain.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-flag layer of the precedence chain; zero
// values mean "flag not set; fall through to config/env/default".
type ResolveOptions struct {
	ConfigPath    string
	CLIRaterModel string // --rater_model
	CLIMaxSteps   string // --max_steps
	CLIMaxRetries string // --max_retries
	CLIMaxClaims  string // --max_claim (K)
	CLIWorkers    string // --parallelize
	CLICachePath  string // --evidence-cache
}

// ResolvedConfig is the fully resolved, provenance-tagged settings set for
// one evaluation run.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	RaterModel   ResolvedValue `json:"rater_model"`   // "provider:model", e.g. "openai:gpt-4-0125-preview"
	SearchAPIKey ResolvedValue `json:"-"`              // never serialized: secret material
	CachePath    ResolvedValue `json:"cache_path"`     // SQLite evidence cache path
	CheckpointDir ResolvedValue `json:"checkpoint_dir"`

	MaxSteps        ResolvedValue `json:"max_steps"`        // search-agent iteration budget per fact
	MaxRetries      ResolvedValue `json:"max_retries"`       // parse-retry budget per LLM call site
	PipelineRetries ResolvedValue `json:"pipeline_retries"`  // whole-fact retry budget (MAX_PIPELINE_RETRIES)
	MaxClaims       ResolvedValue `json:"max_claims"`        // K, the per-response claim cap for F1@K
	Workers         ResolvedValue `json:"workers"`           // batch orchestrator concurrency width
	Temperature     ResolvedValue `json:"temperature"`       // rater sampling temperature

	LLMKeys map[string]ResolvedValue `json:"-"` // provider -> API key, never serialized
}

type fileConfig struct {
	RaterModel string `yaml:"rater_model"`
	CachePath  string `yaml:"cache_path"`
	Checkpoint struct {
		Dir string `yaml:"dir"`
	} `yaml:"checkpoint"`
	Pipeline struct {
		MaxSteps        int     `yaml:"max_steps"`
		MaxRetries      int     `yaml:"max_retries"`
		PipelineRetries int     `yaml:"pipeline_retries"`
		MaxClaims       int     `yaml:"max_claims"`
		Workers         int     `yaml:"workers"`
		Temperature     float64 `yaml:"temperature"`
	} `yaml:"pipeline"`
	LLM struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"llm"`
	Search struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"search"`
}

// DefaultConfigPath follows the common per-user dotfile convention.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".safe-eval", "config.yaml")
}

// ResolveConfig applies the config < env < CLI precedence chain and returns
// the fully resolved settings for one run.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		LLMKeys:    map[string]ResolvedValue{},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.RaterModel, cfg.RaterModel, SourceConfig, path)
		apply(&out.CachePath, cfg.CachePath, SourceConfig, path)
		apply(&out.CheckpointDir, cfg.Checkpoint.Dir, SourceConfig, path)
		applyInt(&out.MaxSteps, cfg.Pipeline.MaxSteps, SourceConfig, path)
		applyInt(&out.MaxRetries, cfg.Pipeline.MaxRetries, SourceConfig, path)
		applyInt(&out.PipelineRetries, cfg.Pipeline.PipelineRetries, SourceConfig, path)
		applyInt(&out.MaxClaims, cfg.Pipeline.MaxClaims, SourceConfig, path)
		applyInt(&out.Workers, cfg.Pipeline.Workers, SourceConfig, path)
		applyFloat(&out.Temperature, cfg.Pipeline.Temperature, SourceConfig, path)

		if key := strings.TrimSpace(cfg.Search.APIKey); key != "" {
			out.SearchAPIKey = ResolvedValue{Value: key, Source: SourceConfig, From: path}
		}
		if key := strings.TrimSpace(cfg.LLM.APIKey); key != "" {
			if p := providerOf(cfg.RaterModel); p != "" {
				out.LLMKeys[p] = ResolvedValue{Value: key, Source: SourceConfig, From: path}
			} else {
				out.LLMKeys["default"] = ResolvedValue{Value: key, Source: SourceConfig, From: path}
			}
		}
	}

	applyEnv(&out.RaterModel, "SAFE_EVAL_RATER_MODEL")
	applyEnv(&out.CachePath, "SAFE_EVAL_CACHE_PATH")
	applyEnv(&out.CheckpointDir, "SAFE_EVAL_CHECKPOINT_DIR")
	applyEnvInt(&out.MaxSteps, "SAFE_EVAL_MAX_STEPS")
	applyEnvInt(&out.MaxRetries, "SAFE_EVAL_MAX_RETRIES")
	applyEnvInt(&out.PipelineRetries, "SAFE_EVAL_PIPELINE_RETRIES")
	applyEnvInt(&out.MaxClaims, "SAFE_EVAL_MAX_CLAIMS")
	applyEnvInt(&out.Workers, "SAFE_EVAL_WORKERS")

	if v := strings.TrimSpace(os.Getenv("SERPER_API_KEY")); v != "" {
		out.SearchAPIKey = ResolvedValue{Value: v, Source: SourceEnv, From: "SERPER_API_KEY"}
	}

	for env, provider := range map[string]string{
		"OPENAI_API_KEY":     "openai",
		"ANTHROPIC_API_KEY":  "anthropic",
		"OPENROUTER_API_KEY": "openrouter",
		"GEMINI_API_KEY":     "google",
		"GOOGLE_API_KEY":     "google",
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			out.LLMKeys[provider] = ResolvedValue{Value: v, Source: SourceEnv, From: env}
		}
	}

	apply(&out.RaterModel, opts.CLIRaterModel, SourceCLI, "--rater_model")
	apply(&out.CachePath, opts.CLICachePath, SourceCLI, "--evidence-cache")
	applyIntString(&out.MaxSteps, opts.CLIMaxSteps, SourceCLI, "--max_steps")
	applyIntString(&out.MaxRetries, opts.CLIMaxRetries, SourceCLI, "--max_retries")
	applyIntString(&out.MaxClaims, opts.CLIMaxClaims, SourceCLI, "--max_claim")
	applyIntString(&out.Workers, opts.CLIWorkers, SourceCLI, "--parallelize")

	applyDefaults(&out)

	if out.CachePath.Value != "" {
		out.CachePath.Value = expandUserPath(out.CachePath.Value)
	}
	if out.CheckpointDir.Value != "" {
		out.CheckpointDir.Value = expandUserPath(out.CheckpointDir.Value)
	}

	return out, nil
}

// applyDefaults fills in any setting still unresolved after config/env/CLI:
// temperature=0.1, max_steps=5, max_retries=10, pipeline_retries=3,
// workers=25, max_claims=100.
func applyDefaults(out *ResolvedConfig) {
	defaultInt(&out.MaxSteps, 5)
	defaultInt(&out.MaxRetries, 10)
	defaultInt(&out.PipelineRetries, 3)
	defaultInt(&out.MaxClaims, 100)
	defaultInt(&out.Workers, 25)
	defaultFloat(&out.Temperature, 0.1)
	if strings.TrimSpace(out.CachePath.Value) == "" {
		out.CachePath = ResolvedValue{Value: expandUserPath("~/.safe-eval/evidence_cache.db"), Source: SourceDefault, From: "built-in default"}
	}
	if strings.TrimSpace(out.CheckpointDir.Value) == "" {
		out.CheckpointDir = ResolvedValue{Value: ".", Source: SourceDefault, From: "built-in default"}
	}
	if strings.TrimSpace(out.RaterModel.Value) == "" {
		out.RaterModel = ResolvedValue{Value: "openai:gpt-4-0125-preview", Source: SourceDefault, From: "built-in default"}
	}
}

// APIKeyForProvider returns the resolved API key for the given provider name
// or "provider:model" string, falling back to a "default" key if one was set
// without a provider prefix.
func (r ResolvedConfig) APIKeyForProvider(providerOrModel string) ResolvedValue {
	provider := providerOf(providerOrModel)
	if provider == "" {
		return ResolvedValue{}
	}
	if v, ok := r.LLMKeys[provider]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	if v, ok := r.LLMKeys["default"]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	return ResolvedValue{}
}

// IntValue parses a ResolvedValue as an int, returning fallback on parse
// failure (should not happen for values this package itself resolved).
func (v ResolvedValue) IntValue(fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil {
		return fallback
	}
	return n
}

// FloatValue parses a ResolvedValue as a float64, returning fallback on
// parse failure.
func (v ResolvedValue) FloatValue(fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func providerOf(providerOrModel string) string {
	v := strings.ToLower(strings.TrimSpace(providerOrModel))
	if v == "" {
		return ""
	}
	if idx := strings.Index(v, ":"); idx > 0 {
		return v[:idx]
	}
	return v
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyInt(dst *ResolvedValue, raw int, source ValueSource, from string) {
	if raw == 0 {
		return
	}
	*dst = ResolvedValue{Value: strconv.Itoa(raw), Source: source, From: from}
}

func applyFloat(dst *ResolvedValue, raw float64, source ValueSource, from string) {
	if raw == 0 {
		return
	}
	*dst = ResolvedValue{Value: strconv.FormatFloat(raw, 'f', -1, 64), Source: source, From: from}
}

func applyIntString(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func applyEnvInt(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func defaultInt(dst *ResolvedValue, n int) {
	if strings.TrimSpace(dst.Value) == "" {
		*dst = ResolvedValue{Value: strconv.Itoa(n), Source: SourceDefault, From: "built-in default"}
	}
}

func defaultFloat(dst *ResolvedValue, f float64) {
	if strings.TrimSpace(dst.Value) == "" {
		*dst = ResolvedValue{Value: strconv.FormatFloat(f, 'f', -1, 64), Source: SourceDefault, From: "built-in default"}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
