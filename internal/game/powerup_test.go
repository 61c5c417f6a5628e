package game

import (
	"math"
	"math/rand/v2"
	"testing"
)

const allocationTrials = 100000

func allocate(t *testing.T, cfg AllocatorConfig) map[PowerUpKind]float64 {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config should be valid: %v", err)
	}
	a := NewAllocator(cfg)
	rng := rand.New(rand.NewPCG(42, 1024))
	counts := map[PowerUpKind]int{}
	for i := 0; i < allocationTrials; i++ {
		kind, ok := a.Allocate(rng)
		if !ok {
			kind = ""
		}
		counts[kind]++
	}
	out := map[PowerUpKind]float64{}
	for k, n := range counts {
		out[k] = float64(n) / allocationTrials
	}
	return out
}

func assertNear(t *testing.T, what string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.01 {
		t.Errorf("%s: got %.4f, want %.4f", what, got, want)
	}
}

func TestAllocatorGatedConverges(t *testing.T) {
	got := allocate(t, DefaultAllocatorConfig())
	assertNear(t, "none", got[""], 0.8)
	assertNear(t, "extraTime", got[PowerUpExtraTime], 0.2*0.2/0.35)
	assertNear(t, "skipTurn", got[PowerUpSkipTurn], 0.2*0.1/0.35)
	assertNear(t, "extraLife", got[PowerUpExtraLife], 0.2*0.05/0.35)
}

func TestAllocatorAbsoluteConverges(t *testing.T) {
	cfg := DefaultAllocatorConfig()
	cfg.Mode = ModeAbsolute
	got := allocate(t, cfg)
	assertNear(t, "none", got[""], 0.65)
	assertNear(t, "extraTime", got[PowerUpExtraTime], 0.2)
	assertNear(t, "skipTurn", got[PowerUpSkipTurn], 0.1)
	assertNear(t, "extraLife", got[PowerUpExtraLife], 0.05)
}

func TestAllocatorZeroChanceNeverGrants(t *testing.T) {
	cfg := DefaultAllocatorConfig()
	cfg.Chance = 0
	a := NewAllocator(cfg)
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 1000; i++ {
		if kind, ok := a.Allocate(rng); ok {
			t.Fatalf("expected no grant, got %s", kind)
		}
	}
}

func TestAllocatorConfigValidate(t *testing.T) {
	cfg := DefaultAllocatorConfig()
	cfg.Chance = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("chance above 1 should be rejected")
	}
	cfg = DefaultAllocatorConfig()
	cfg.Mode = ModeAbsolute
	cfg.Weights[0].Weight = 0.9
	if err := cfg.Validate(); err == nil {
		t.Fatal("absolute weights above 1 should be rejected")
	}
	cfg = DefaultAllocatorConfig()
	cfg.Weights = append(cfg.Weights, PowerUpWeight{Kind: "teleport", Weight: 0.1})
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown kind should be rejected")
	}
}
