package compaction

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultToolOutputTokenThreshold = 500
	DefaultHotTurns                 = 3
	DefaultWarmTurns                = 10
	DefaultColdTurns                = 25
	DefaultGoneTurns                = 40
	DefaultMinHotTurns              = 3
	DefaultMaxGonePerCycle          = 5
	DefaultGCTriggerPct             = 0.75   // collect at 75% context usage
	DefaultGCTargetPct              = 0.55   // free down to 55% of the window
	DefaultGCCooldownMs             = 30000  // at most one collection per 30s per session
	DefaultMaxTokensForModel        = 200000 // Claude Sonnet 4.5 context window
	DefaultTokenCountingModel       = "claude-sonnet-4-5-20250929"
	DefaultUseTokenCountingAPI      = true
	DefaultInjectRecallHint         = true
	DefaultRecallCommand            = "nous-memory get"
)

// Config holds GC configuration. Zero values take defaults.
type Config struct {
	// ToolOutputTokenThreshold is the tool-output size, in estimated tokens,
	// at which write-through externalizes a message.
	// Default: 500
	ToolOutputTokenThreshold int `yaml:"tool_output_token_threshold"`

	// HotTurns, WarmTurns, ColdTurns and GoneTurns are the base turn-age
	// boundaries between tiers, before pressure scaling.
	// Defaults: 3, 10, 25, 40
	HotTurns  int `yaml:"hot_turns"`
	WarmTurns int `yaml:"warm_turns"`
	ColdTurns int `yaml:"cold_turns"`
	GoneTurns int `yaml:"gone_turns"`

	// MinHotTurns is the floor for the hot boundary under any pressure.
	// Default: 3
	MinHotTurns int `yaml:"min_hot_turns"`

	// MaxGonePerCycle caps physical removals per cycle.
	// Default: 5
	MaxGonePerCycle int `yaml:"max_gone_per_cycle"`

	// GCTriggerPct is the context usage ratio (0.0-1.0) at which a cycle runs.
	// Default: 0.75
	GCTriggerPct float64 `yaml:"gc_trigger_pct"`

	// GCTargetPct is the usage ratio a cycle tries to bring the context down to.
	// Default: 0.55
	GCTargetPct float64 `yaml:"gc_target_pct"`

	// GCCooldownMs is the minimum time between two preemptive cycles of one session.
	// Default: 30000
	GCCooldownMs int `yaml:"gc_cooldown_ms"`

	// BrainWriteThrough externalizes large tool outputs to long-term memory
	// before compressing them, so markers can point back at the full content.
	// Default: false
	BrainWriteThrough bool `yaml:"brain_write_through"`

	// DisablePreemptiveCompaction turns CollectIfNeeded into a no-op.
	// Default: false
	DisablePreemptiveCompaction bool `yaml:"disable_preemptive_compaction"`

	// MaxTokensForModel is the context window of the target model.
	// Default: 200000
	MaxTokensForModel int `yaml:"max_tokens_for_model"`

	// TokenCountingModel is the model passed to the token counting API.
	// Default: "claude-sonnet-4-5-20250929"
	TokenCountingModel string `yaml:"token_counting_model"`

	// UseTokenCountingAPI determines whether to use Claude's token counting API.
	// If false or the API fails, the character-based estimate is used.
	// Default: true
	UseTokenCountingAPI bool `yaml:"use_token_counting_api"`

	// InjectRecallHint appends a one-time recall hint to the last user
	// message once markers exist in the conversation.
	// Default: true
	InjectRecallHint bool `yaml:"inject_recall_hint"`

	// InjectPrefetchHint lists markers relevant to the last user message.
	// Default: false
	InjectPrefetchHint bool `yaml:"inject_prefetch_hint"`

	// RecallCommand is the command recall hints tell the model to run.
	// Default: "nous-memory get"
	RecallCommand string `yaml:"recall_command"`
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() *Config {
	return &Config{
		ToolOutputTokenThreshold: DefaultToolOutputTokenThreshold,
		HotTurns:                 DefaultHotTurns,
		WarmTurns:                DefaultWarmTurns,
		ColdTurns:                DefaultColdTurns,
		GoneTurns:                DefaultGoneTurns,
		MinHotTurns:              DefaultMinHotTurns,
		MaxGonePerCycle:          DefaultMaxGonePerCycle,
		GCTriggerPct:             DefaultGCTriggerPct,
		GCTargetPct:              DefaultGCTargetPct,
		GCCooldownMs:             DefaultGCCooldownMs,
		MaxTokensForModel:        DefaultMaxTokensForModel,
		TokenCountingModel:       DefaultTokenCountingModel,
		UseTokenCountingAPI:      DefaultUseTokenCountingAPI,
		InjectRecallHint:         DefaultInjectRecallHint,
		RecallCommand:            DefaultRecallCommand,
	}
}

// ParseConfig decodes YAML over the defaults and validates the result.
// Keys absent from data keep their default values.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.ToolOutputTokenThreshold <= 0 {
		return fmt.Errorf("%w: tool_output_token_threshold must be positive, got %d", ErrInvalidConfig, c.ToolOutputTokenThreshold)
	}

	if c.HotTurns <= 0 {
		return fmt.Errorf("%w: hot_turns must be positive, got %d", ErrInvalidConfig, c.HotTurns)
	}

	if c.MinHotTurns < 0 {
		return fmt.Errorf("%w: min_hot_turns must be non-negative, got %d", ErrInvalidConfig, c.MinHotTurns)
	}

	if c.WarmTurns <= c.HotTurns || c.ColdTurns <= c.WarmTurns || c.GoneTurns <= c.ColdTurns {
		return fmt.Errorf("%w: turn boundaries must be strictly increasing, got hot=%d warm=%d cold=%d gone=%d",
			ErrInvalidConfig, c.HotTurns, c.WarmTurns, c.ColdTurns, c.GoneTurns)
	}

	if c.MaxGonePerCycle <= 0 {
		return fmt.Errorf("%w: max_gone_per_cycle must be positive, got %d", ErrInvalidConfig, c.MaxGonePerCycle)
	}

	if c.GCTriggerPct <= 0 || c.GCTriggerPct > 1.0 {
		return fmt.Errorf("%w: gc_trigger_pct must be between 0 and 1, got %f", ErrInvalidConfig, c.GCTriggerPct)
	}

	if c.GCTargetPct <= 0 || c.GCTargetPct >= c.GCTriggerPct {
		return fmt.Errorf("%w: gc_target_pct (%f) must be positive and below gc_trigger_pct (%f)",
			ErrInvalidConfig, c.GCTargetPct, c.GCTriggerPct)
	}

	if c.GCCooldownMs < 0 {
		return fmt.Errorf("%w: gc_cooldown_ms must be non-negative, got %d", ErrInvalidConfig, c.GCCooldownMs)
	}

	if c.MaxTokensForModel <= 0 {
		return fmt.Errorf("%w: max_tokens_for_model must be positive, got %d", ErrInvalidConfig, c.MaxTokensForModel)
	}

	if c.UseTokenCountingAPI && c.TokenCountingModel == "" {
		return fmt.Errorf("%w: token_counting_model is required when use_token_counting_api is set", ErrInvalidConfig)
	}

	return nil
}

// ApplyDefaults fills in zero values with defaults.
// Booleans cannot be told apart from an explicit false and are left alone.
func (c *Config) ApplyDefaults() {
	if c.ToolOutputTokenThreshold == 0 {
		c.ToolOutputTokenThreshold = DefaultToolOutputTokenThreshold
	}
	if c.HotTurns == 0 {
		c.HotTurns = DefaultHotTurns
	}
	if c.WarmTurns == 0 {
		c.WarmTurns = DefaultWarmTurns
	}
	if c.ColdTurns == 0 {
		c.ColdTurns = DefaultColdTurns
	}
	if c.GoneTurns == 0 {
		c.GoneTurns = DefaultGoneTurns
	}
	if c.MinHotTurns == 0 {
		c.MinHotTurns = DefaultMinHotTurns
	}
	if c.MaxGonePerCycle == 0 {
		c.MaxGonePerCycle = DefaultMaxGonePerCycle
	}
	if c.GCTriggerPct == 0 {
		c.GCTriggerPct = DefaultGCTriggerPct
	}
	if c.GCTargetPct == 0 {
		c.GCTargetPct = DefaultGCTargetPct
	}
	if c.GCCooldownMs == 0 {
		c.GCCooldownMs = DefaultGCCooldownMs
	}
	if c.MaxTokensForModel == 0 {
		c.MaxTokensForModel = DefaultMaxTokensForModel
	}
	if c.TokenCountingModel == "" {
		c.TokenCountingModel = DefaultTokenCountingModel
	}
	if c.RecallCommand == "" {
		c.RecallCommand = DefaultRecallCommand
	}
}

// Cooldown returns GCCooldownMs as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.GCCooldownMs) * time.Millisecond
}

// TriggerThreshold returns the absolute token count that triggers a cycle.
func (c *Config) TriggerThreshold() int {
	return int(float64(c.MaxTokensForModel) * c.GCTriggerPct)
}

// TargetTokens returns the absolute token count a cycle aims for.
func (c *Config) TargetTokens() int {
	return int(float64(c.MaxTokensForModel) * c.GCTargetPct)
}
