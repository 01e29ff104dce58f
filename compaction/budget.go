package compaction

import "math"

// PressureZone is a band of context-window usage.
type PressureZone string

const (
	PressureLow      PressureZone = "low"
	PressureNormal   PressureZone = "normal"
	PressureElevated PressureZone = "elevated"
	PressureHigh     PressureZone = "high"
	PressureExtreme  PressureZone = "extreme"
)

// Budget holds the turn-age boundaries of one cycle.
// Hot < Warm < Cold < Gone always holds for a computed budget.
type Budget struct {
	HotTurns  int `json:"hot_turns"`
	WarmTurns int `json:"warm_turns"`
	ColdTurns int `json:"cold_turns"`
	GoneTurns int `json:"gone_turns"`
}

type multipliers struct {
	hot, warm, cold, gone float64
}

var pressureMultipliers = map[PressureZone]multipliers{
	PressureLow:      {hot: 1.5, warm: 1.5, cold: 1.3, gone: 1.3},
	PressureNormal:   {hot: 1.0, warm: 1.0, cold: 1.0, gone: 1.0},
	PressureElevated: {hot: 1.0, warm: 0.8, cold: 0.7, gone: 0.6},
	PressureHigh:     {hot: 0.8, warm: 0.6, cold: 0.5, gone: 0.4},
	PressureExtreme:  {hot: 0.6, warm: 0.4, cold: 0.3, gone: 0.25},
}

func clampRatio(ratio float64) float64 {
	if math.IsNaN(ratio) {
		return 0
	}
	return math.Max(0, math.Min(1, ratio))
}

// PressureZoneFor classifies a usage ratio. Ratios outside [0,1] are clamped.
func PressureZoneFor(ratio float64) PressureZone {
	ratio = clampRatio(ratio)
	switch {
	case ratio < 0.30:
		return PressureLow
	case ratio < 0.45:
		return PressureNormal
	case ratio < 0.60:
		return PressureElevated
	case ratio < 0.75:
		return PressureHigh
	default:
		return PressureExtreme
	}
}

// ComputeDynamicBudget scales the configured boundaries by the pressure zone
// of ratio. A nil cfg means the defaults.
func ComputeDynamicBudget(cfg *Config, ratio float64) Budget {
	base := baseTurns(cfg)
	mult := pressureMultipliers[PressureZoneFor(ratio)]

	hot := max(base.minHot, scale(base.hot, mult.hot))
	warm := max(hot+1, scale(base.warm, mult.warm))
	cold := max(warm+1, scale(base.cold, mult.cold))
	gone := max(cold+1, scale(base.gone, mult.gone))

	return Budget{HotTurns: hot, WarmTurns: warm, ColdTurns: cold, GoneTurns: gone}
}

// StaticBudget returns the configured boundaries without pressure scaling.
// The hot boundary is still raised to MinHotTurns.
func StaticBudget(cfg *Config) Budget {
	base := baseTurns(cfg)
	return Budget{
		HotTurns:  max(base.minHot, base.hot),
		WarmTurns: base.warm,
		ColdTurns: base.cold,
		GoneTurns: base.gone,
	}
}

type turns struct {
	hot, warm, cold, gone, minHot int
}

func baseTurns(cfg *Config) turns {
	t := turns{
		hot:    DefaultHotTurns,
		warm:   DefaultWarmTurns,
		cold:   DefaultColdTurns,
		gone:   DefaultGoneTurns,
		minHot: DefaultMinHotTurns,
	}
	if cfg == nil {
		return t
	}
	if cfg.HotTurns != 0 {
		t.hot = cfg.HotTurns
	}
	if cfg.WarmTurns != 0 {
		t.warm = cfg.WarmTurns
	}
	if cfg.ColdTurns != 0 {
		t.cold = cfg.ColdTurns
	}
	if cfg.GoneTurns != 0 {
		t.gone = cfg.GoneTurns
	}
	if cfg.MinHotTurns != 0 {
		t.minHot = cfg.MinHotTurns
	}
	return t
}

func scale(n int, factor float64) int {
	return int(math.Round(float64(n) * factor))
}
