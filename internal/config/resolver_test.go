package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `rater_model: openrouter:deepseek/deepseek-v3.2
pipeline:
  max_steps: 7
  max_claims: 50
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SAFE_EVAL_RATER_MODEL", "google:gemini-2.5-flash")
	t.Setenv("SAFE_EVAL_MAX_STEPS", "3")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath:    cfgPath,
		CLIRaterModel: "openai:gpt-4-0125-preview",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.RaterModel.Source != SourceCLI {
		t.Fatalf("expected rater model source cli, got %s", resolved.RaterModel.Source)
	}
	if resolved.RaterModel.Value != "openai:gpt-4-0125-preview" {
		t.Fatalf("unexpected rater model: %q", resolved.RaterModel.Value)
	}
	if resolved.MaxSteps.Source != SourceEnv {
		t.Fatalf("expected max_steps source env, got %s", resolved.MaxSteps.Source)
	}
	if resolved.MaxClaims.Source != SourceConfig {
		t.Fatalf("expected max_claims from config, got %s", resolved.MaxClaims.Source)
	}
	if resolved.MaxClaims.IntValue(0) != 50 {
		t.Fatalf("unexpected max_claims: %v", resolved.MaxClaims)
	}
}

func TestResolveConfig_Defaults(t *testing.T) {
	tmp := t.TempDir()
	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(tmp, "missing.yaml")})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.MaxSteps.IntValue(0) != 5 {
		t.Fatalf("expected default max_steps=5, got %v", resolved.MaxSteps)
	}
	if resolved.MaxRetries.IntValue(0) != 10 {
		t.Fatalf("expected default max_retries=10, got %v", resolved.MaxRetries)
	}
	if resolved.PipelineRetries.IntValue(0) != 3 {
		t.Fatalf("expected default pipeline_retries=3, got %v", resolved.PipelineRetries)
	}
	if resolved.Workers.IntValue(0) != 25 {
		t.Fatalf("expected default workers=25, got %v", resolved.Workers)
	}
	if resolved.Temperature.FloatValue(-1) != 0.1 {
		t.Fatalf("expected default temperature=0.1, got %v", resolved.Temperature)
	}
	for _, v := range []ResolvedValue{resolved.MaxSteps, resolved.MaxRetries, resolved.PipelineRetries, resolved.Workers, resolved.Temperature} {
		if v.Source != SourceDefault {
			t.Errorf("expected default source, got %s", v.Source)
		}
	}
}

func TestAPIKeyForProvider_EnvOverridesConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `rater_model: openrouter:x-ai/grok-4.1-fast
llm:
  api_key: config-key
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	k := resolved.APIKeyForProvider("openrouter:some-model")
	if k.Value != "env-key" {
		t.Fatalf("expected env key, got %q", k.Value)
	}
	if k.Source != SourceEnv {
		t.Fatalf("expected source env, got %s", k.Source)
	}
}

func TestIntValue_ParseFailureFallsBack(t *testing.T) {
	v := ResolvedValue{Value: "not-a-number"}
	if v.IntValue(42) != 42 {
		t.Fatalf("expected fallback 42")
	}
}
