package compaction

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if got := cfg.TriggerThreshold(); got != 150000 {
		t.Errorf("TriggerThreshold() = %d, want 150000", got)
	}
	if got := cfg.TargetTokens(); got != 110000 {
		t.Errorf("TargetTokens() = %d, want 110000", got)
	}
	if got := cfg.Cooldown(); got != 30*time.Second {
		t.Errorf("Cooldown() = %v, want 30s", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{HotTurns: 4, GCTriggerPct: 0.9}
	cfg.ApplyDefaults()

	if cfg.HotTurns != 4 || cfg.GCTriggerPct != 0.9 {
		t.Error("ApplyDefaults overwrote explicit values")
	}
	if cfg.WarmTurns != DefaultWarmTurns || cfg.MaxTokensForModel != DefaultMaxTokensForModel || cfg.RecallCommand != DefaultRecallCommand {
		t.Errorf("zero values not defaulted: %+v", cfg)
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
hot_turns: 4
warm_turns: 12
gc_trigger_pct: 0.8
brain_write_through: true
inject_prefetch_hint: true
recall_command: brain show
`)

	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HotTurns != 4 || cfg.WarmTurns != 12 || cfg.GCTriggerPct != 0.8 {
		t.Errorf("parsed values wrong: %+v", cfg)
	}
	if !cfg.BrainWriteThrough || !cfg.InjectPrefetchHint || cfg.RecallCommand != "brain show" {
		t.Errorf("parsed flags wrong: %+v", cfg)
	}
	if cfg.ColdTurns != DefaultColdTurns || !cfg.InjectRecallHint || !cfg.UseTokenCountingAPI {
		t.Errorf("absent keys lost their defaults: %+v", cfg)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "hot_turns: ["},
		{"boundaries not increasing", "warm_turns: 2"},
		{"target above trigger", "gc_target_pct: 0.8"},
		{"trigger above one", "gc_trigger_pct: 1.5"},
		{"negative threshold", "tool_output_token_threshold: -1"},
		{"negative cooldown", "gc_cooldown_ms: -5"},
		{"negative gone cap", "max_gone_per_cycle: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("ParseConfig(%q) error = %v, want ErrInvalidConfig", tt.data, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gc.yaml")
	if err := os.WriteFile(path, []byte("max_tokens_for_model: 100000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MaxTokensForModel != 100000 {
		t.Errorf("MaxTokensForModel = %d, want 100000", cfg.MaxTokensForModel)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() of a missing file returned nil error")
	}
}
