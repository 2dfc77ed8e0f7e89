package reputation

// Tier represents a reputation bracket.
type Tier string

const (
	TierNewcomer  Tier = "newcomer"  // 0-199: just joined
	TierActive    Tier = "active"    // 200-399: participating
	TierReliable  Tier = "reliable"  // 400-599: consistent track record
	TierTrusted   Tier = "trusted"   // 600-899: proven across every factor
	TierElite     Tier = "elite"     // 900-999: top of the network
	TierLegendary Tier = "legendary" // 1000+: perfect across the board
)

// TierMaxUnbounded marks the terminal tier's open upper bound.
const TierMaxUnbounded = -1

// TierInfo is the static display descriptor for a tier. It is
// configuration data consumed by the presentation layer, never computed.
type TierInfo struct {
	Tier        Tier   `json:"tier"`
	Name        string `json:"name"`
	MinScore    int    `json:"minScore"`
	MaxScore    int    `json:"maxScore"` // TierMaxUnbounded for the terminal tier
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Unbounded reports whether the tier has no upper score limit.
func (t TierInfo) Unbounded() bool {
	return t.MaxScore == TierMaxUnbounded
}

// Contains reports whether score falls inside the tier's range.
func (t TierInfo) Contains(score int) bool {
	return score >= t.MinScore && (t.Unbounded() || score <= t.MaxScore)
}

// tiers is the ordered classification table. Ranges are contiguous and
// ascending; the slice order IS the classification order, so contiguity
// is structural rather than an iteration-order assumption.
var tiers = []TierInfo{
	{
		Tier:        TierNewcomer,
		Name:        "Newcomer",
		MinScore:    0,
		MaxScore:    199,
		Color:       "#9ca3af",
		Icon:        "seedling",
		Description: "Just joined the network. No track record yet.",
	},
	{
		Tier:        TierActive,
		Name:        "Active",
		MinScore:    200,
		MaxScore:    399,
		Color:       "#3b82f6",
		Icon:        "bolt",
		Description: "Regularly transacting and building history.",
	},
	{
		Tier:        TierReliable,
		Name:        "Reliable",
		MinScore:    400,
		MaxScore:    599,
		Color:       "#10b981",
		Icon:        "shield-check",
		Description: "Consistent delivery with a solid success rate.",
	},
	{
		Tier:        TierTrusted,
		Name:        "Trusted",
		MinScore:    600,
		MaxScore:    899,
		Color:       "#8b5cf6",
		Icon:        "badge-check",
		Description: "Proven across volume, reviews, and availability.",
	},
	{
		Tier:        TierElite,
		Name:        "Elite",
		MinScore:    900,
		MaxScore:    999,
		Color:       "#f59e0b",
		Icon:        "star",
		Description: "Among the strongest agents on the network.",
	},
	{
		Tier:        TierLegendary,
		Name:        "Legendary",
		MinScore:    1000,
		MaxScore:    TierMaxUnbounded,
		Color:       "#ef4444",
		Icon:        "crown",
		Description: "Perfect or near-perfect on every trust factor.",
	},
}

// Tiers returns the ordered tier descriptor table. Callers must treat the
// returned slice as read-only.
func Tiers() []TierInfo {
	return tiers
}

// TierForScore classifies a score by scanning the table in order and
// returning the first tier whose range contains it. Negative scores
// classify as the first tier; anything past the table falls through to
// the highest tier, so classification never fails.
func TierForScore(score int) Tier {
	for _, t := range tiers {
		if score <= t.MaxScore || t.Unbounded() {
			return t.Tier
		}
	}
	return tiers[len(tiers)-1].Tier
}

// InfoFor returns the descriptor for a tier tag. Unknown tags report
// ok=false with the first tier as a usable zero-ish value.
func InfoFor(tier Tier) (TierInfo, bool) {
	for _, t := range tiers {
		if t.Tier == tier {
			return t, true
		}
	}
	return tiers[0], false
}

// Progress describes how far a score has advanced through its tier.
type Progress struct {
	Tier     Tier      `json:"tier"`
	TierInfo TierInfo  `json:"tierInfo"`
	Progress float64   `json:"progress"` // 0-100 within the current tier
	NextTier *TierInfo `json:"nextTier,omitempty"`
}

// ProgressToNextTier computes the percentage distance from the current
// tier's floor toward the next tier. The terminal tier is absorbing:
// progress 100, no next tier.
func ProgressToNextTier(score int) Progress {
	idx := 0
	for i, t := range tiers {
		if t.Contains(score) {
			idx = i
			break
		}
	}
	cur := tiers[idx]

	if cur.Unbounded() {
		return Progress{Tier: cur.Tier, TierInfo: cur, Progress: 100}
	}

	span := float64(cur.MaxScore - cur.MinScore + 1)
	p := float64(score-cur.MinScore) / span * 100
	p = clampScore(p)

	next := tiers[idx+1]
	return Progress{Tier: cur.Tier, TierInfo: cur, Progress: p, NextTier: &next}
}
