package game

import "fmt"

// AllocationMode selects how power-up weights are read.
type AllocationMode string

const (
	// ModeGated first rolls Chance for any grant, then picks a kind with
	// weights normalized to sum to 1.
	ModeGated AllocationMode = "gated"
	// ModeAbsolute reads each weight as the kind's own probability; the
	// remainder up to 1 is no grant. Chance is ignored.
	ModeAbsolute AllocationMode = "absolute"
)

type PowerUpWeight struct {
	Kind   PowerUpKind `json:"kind"`
	Weight float64     `json:"weight"`
}

type AllocatorConfig struct {
	Mode    AllocationMode  `json:"mode"`
	Chance  float64         `json:"chance"`
	Weights []PowerUpWeight `json:"weights"`
}

func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		Mode:   ModeGated,
		Chance: 0.2,
		Weights: []PowerUpWeight{
			{Kind: PowerUpExtraTime, Weight: 0.2},
			{Kind: PowerUpSkipTurn, Weight: 0.1},
			{Kind: PowerUpExtraLife, Weight: 0.05},
		},
	}
}

// Validate checks probabilities are in range.
func (c AllocatorConfig) Validate() error {
	if c.Chance < 0 || c.Chance > 1 {
		return fmt.Errorf("power-up chance %v out of range [0,1]", c.Chance)
	}
	var total float64
	for _, w := range c.Weights {
		if w.Weight < 0 {
			return fmt.Errorf("negative weight for %s", w.Kind)
		}
		if _, err := ParsePowerUpKind(string(w.Kind)); err != nil {
			return fmt.Errorf("power-up %q: %w", w.Kind, err)
		}
		total += w.Weight
	}
	switch c.Mode {
	case ModeGated, "":
	case ModeAbsolute:
		if total > 1 {
			return fmt.Errorf("absolute power-up weights sum to %v, want <= 1", total)
		}
	default:
		return fmt.Errorf("unknown power-up mode %q", c.Mode)
	}
	return nil
}

// Allocator decides whether the upcoming player receives a power-up.
type Allocator struct {
	cfg   AllocatorConfig
	total float64
}

func NewAllocator(cfg AllocatorConfig) *Allocator {
	a := &Allocator{cfg: cfg}
	for _, w := range cfg.Weights {
		a.total += w.Weight
	}
	return a
}

// Allocate returns the granted kind, or false when nothing is granted.
func (a *Allocator) Allocate(rng RandomSource) (PowerUpKind, bool) {
	if a.total <= 0 {
		return "", false
	}
	var x float64
	if a.cfg.Mode == ModeAbsolute {
		x = rng.Float64()
	} else {
		if rng.Float64() >= a.cfg.Chance {
			return "", false
		}
		x = rng.Float64() * a.total
	}
	for _, w := range a.cfg.Weights {
		if x < w.Weight {
			return w.Kind, true
		}
		x -= w.Weight
	}
	if a.cfg.Mode != ModeAbsolute {
		// rounding left x just past the last bucket
		for i := len(a.cfg.Weights) - 1; i >= 0; i-- {
			if a.cfg.Weights[i].Weight > 0 {
				return a.cfg.Weights[i].Kind, true
			}
		}
	}
	return "", false
}
