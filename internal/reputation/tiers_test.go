package reputation

import (
	"math"
	"testing"
)

func TestTierTableContiguous(t *testing.T) {
	all := Tiers()
	if len(all) == 0 {
		t.Fatal("empty tier table")
	}
	if all[0].MinScore != 0 {
		t.Errorf("first tier starts at %d, want 0", all[0].MinScore)
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Unbounded() {
			t.Fatalf("tier %s is unbounded but not last", prev.Tier)
		}
		if cur.MinScore != prev.MaxScore+1 {
			t.Errorf("gap between %s and %s: %d -> %d", prev.Tier, cur.Tier, prev.MaxScore, cur.MinScore)
		}
	}
	if !all[len(all)-1].Unbounded() {
		t.Error("last tier must be unbounded")
	}
}

func TestTierForScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{0, TierNewcomer},
		{199, TierNewcomer},
		{200, TierActive},
		{399, TierActive},
		{400, TierReliable},
		{599, TierReliable},
		{600, TierTrusted},
		{899, TierTrusted},
		{900, TierElite},
		{999, TierElite},
		{1000, TierLegendary},
		{5000, TierLegendary},
	}
	for _, tt := range tests {
		if got := TierForScore(tt.score); got != tt.want {
			t.Errorf("TierForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestTierForScoreTotal(t *testing.T) {
	// Every score classifies into the tier whose range contains it.
	for score := 0; score <= 5000; score++ {
		tier := TierForScore(score)
		info, ok := InfoFor(tier)
		if !ok {
			t.Fatalf("InfoFor(%s) not found", tier)
		}
		if !info.Contains(score) {
			t.Fatalf("TierForScore(%d) = %s but range is [%d,%d]", score, tier, info.MinScore, info.MaxScore)
		}
	}
}

func TestInfoForUnknownTier(t *testing.T) {
	if _, ok := InfoFor(Tier("mythic")); ok {
		t.Error("InfoFor accepted an unknown tier tag")
	}
}

func TestProgressToNextTier(t *testing.T) {
	tests := []struct {
		score    int
		wantTier Tier
		wantPct  float64
		wantNext Tier
	}{
		{0, TierNewcomer, 0, TierActive},
		{100, TierNewcomer, 50, TierActive},
		{199, TierNewcomer, 99.5, TierActive},
		{200, TierActive, 0, TierReliable},
		{750, TierTrusted, 50, TierElite},
		{999, TierElite, 99, TierLegendary},
	}
	for _, tt := range tests {
		p := ProgressToNextTier(tt.score)
		if p.Tier != tt.wantTier {
			t.Errorf("ProgressToNextTier(%d).Tier = %s, want %s", tt.score, p.Tier, tt.wantTier)
		}
		if math.Abs(p.Progress-tt.wantPct) > 1e-6 {
			t.Errorf("ProgressToNextTier(%d).Progress = %v, want %v", tt.score, p.Progress, tt.wantPct)
		}
		if p.NextTier == nil {
			t.Fatalf("ProgressToNextTier(%d).NextTier = nil", tt.score)
		}
		if p.NextTier.Tier != tt.wantNext {
			t.Errorf("ProgressToNextTier(%d).NextTier = %s, want %s", tt.score, p.NextTier.Tier, tt.wantNext)
		}
	}
}

func TestProgressTerminalTier(t *testing.T) {
	for _, score := range []int{1000, 1500, 9999} {
		p := ProgressToNextTier(score)
		if p.Tier != TierLegendary {
			t.Errorf("ProgressToNextTier(%d).Tier = %s, want %s", score, p.Tier, TierLegendary)
		}
		if p.Progress != 100 {
			t.Errorf("ProgressToNextTier(%d).Progress = %v, want 100", score, p.Progress)
		}
		if p.NextTier != nil {
			t.Errorf("ProgressToNextTier(%d).NextTier = %+v, want nil", score, p.NextTier)
		}
	}
}
