// Package reputation implements trust scoring for agents on the Agora
// marketplace network.
//
// A score is computed from six independent behavioral signals:
// - Transaction volume and success rate
// - Peer reviews (average rating plus review count)
// - Uptime (heartbeat-derived availability)
// - Account age (time on network)
// - Network connections (accepted pairings)
//
// Each signal is normalized to [0, 100] by a hand-tuned nonlinear curve,
// then combined by a fixed weighted sum. The final score lands on a
// 0-1000 scale and classifies into one of six tiers used for display
// and access gating.
package reputation

import (
	"math"
	"time"
)

// Input holds the raw behavioral signals for one agent. It is built by a
// StatsProvider and consumed by Engine.Compute. The engine never validates
// it: out-of-domain values flow through the curves and are clamped per
// factor, never rejected.
type Input struct {
	TotalTransactions      int       `json:"totalTransactions"`
	SuccessfulTransactions int       `json:"successfulTransactions"`
	AvgRating              float64   `json:"avgRating"`    // 0-5 scale
	ReviewsCount           int       `json:"reviewsCount"`
	UptimePercent          float64   `json:"uptimePercent"` // 0-100
	CreatedAt              time.Time `json:"createdAt"`
	ConnectionsCount       int       `json:"connectionsCount"`
}

// Breakdown holds the six normalized sub-scores, each in [0, 100].
// Returned alongside the final score for explainability.
type Breakdown struct {
	Transactions float64 `json:"transactions"`
	SuccessRate  float64 `json:"successRate"`
	Reviews      float64 `json:"reviews"`
	Uptime       float64 `json:"uptime"`
	Age          float64 `json:"age"`
	Connections  float64 `json:"connections"`
}

// Result is the engine's sole output.
type Result struct {
	AgentID string `json:"agentId,omitempty"`

	// Score is the weighted sum scaled to 0-1000.
	Score int `json:"score"`
	// NormalizedScore is the weighted sum rounded on its native 0-100
	// scale. Both are rounded independently from the same unrounded sum;
	// Score is NOT NormalizedScore*10.
	NormalizedScore int `json:"normalizedScore"`

	Tier      Tier      `json:"tier"`
	TierInfo  TierInfo  `json:"tierInfo"`
	Breakdown Breakdown `json:"breakdown"`

	CalculatedAt time.Time `json:"calculatedAt"`
}

// Weights for the factor sub-scores (must sum to 1.0).
type Weights struct {
	Transactions float64
	SuccessRate  float64
	Reviews      float64
	Uptime       float64
	Age          float64
	Connections  float64
}

// DefaultWeights balances all six factors.
var DefaultWeights = Weights{
	Transactions: 0.25, // Activity is the strongest trust signal
	SuccessRate:  0.20, // But it must be successful activity
	Reviews:      0.20, // Peers get a direct say
	Uptime:       0.15, // Availability matters for gating
	Age:          0.10, // Time builds trust slowly
	Connections:  0.10, // Network breadth resists sybils
}

// Engine computes reputation scores. It is stateless and safe for
// concurrent use.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine with the default weights.
func NewEngine() *Engine {
	return &Engine{weights: DefaultWeights}
}

// NewEngineWithWeights creates an engine with custom weights.
func NewEngineWithWeights(w Weights) *Engine {
	return &Engine{weights: w}
}

// Compute calculates a reputation result from raw signals. The evaluation
// instant is injected so results are reproducible: identical input and
// identical now yield identical output.
func (e *Engine) Compute(in Input, now time.Time) *Result {
	b := Breakdown{
		Transactions: scoreTransactions(in.TotalTransactions),
		SuccessRate:  scoreSuccessRate(in.SuccessfulTransactions, in.TotalTransactions),
		Reviews:      scoreReviews(in.AvgRating, in.ReviewsCount),
		Uptime:       scoreUptime(in.UptimePercent),
		Age:          scoreAge(in.CreatedAt, now),
		Connections:  scoreConnections(in.ConnectionsCount),
	}

	weighted := e.weights.Transactions*b.Transactions +
		e.weights.SuccessRate*b.SuccessRate +
		e.weights.Reviews*b.Reviews +
		e.weights.Uptime*b.Uptime +
		e.weights.Age*b.Age +
		e.weights.Connections*b.Connections

	// Two independent roundings of the same unrounded sum. Scaling the
	// already-rounded normalized score would diverge on fractional sums.
	score := int(math.Round(weighted * 10))
	normalized := int(math.Round(weighted))

	tier := TierForScore(score)
	info, _ := InfoFor(tier)

	return &Result{
		Score:           score,
		NormalizedScore: normalized,
		Tier:            tier,
		TierInfo:        info,
		Breakdown:       b,
		CalculatedAt:    now,
	}
}

// scoreTransactions rewards volume with logarithmic diminishing returns:
// ~10 transactions = 50, ~1000 = 100 (capped).
func scoreTransactions(n int) float64 {
	if n <= 0 {
		return 0
	}
	return clampScore(math.Log10(float64(n)+1) * 33.3)
}

// scoreSuccessRate maps the completed/total ratio through three linear
// segments of increasing slope: below 50% is punished disproportionately,
// above 80% rewarded disproportionately. Agents with no history get a
// neutral 50.
func scoreSuccessRate(successful, total int) float64 {
	if total == 0 {
		return 50
	}
	rate := float64(successful) / float64(total) * 100

	var s float64
	switch {
	case rate < 50:
		s = rate * 0.5
	case rate < 80:
		s = 25 + (rate-50)*1.25
	default:
		s = 62.5 + (rate-80)*1.875
	}
	return clampScore(s)
}

// scoreReviews blends rating quality (70%) with review volume (30%).
// Volume saturates quickly: 10 reviews = 50, 100 = 100 (capped). No
// reviews yet is neutral, not zero.
func scoreReviews(avgRating float64, count int) float64 {
	if count == 0 {
		return 50
	}
	ratingScore := avgRating / 5 * 100
	countScore := math.Min(100, math.Log10(float64(count)+1)*50)
	return clampScore(ratingScore*0.7 + countScore*0.3)
}

// scoreUptime favors near-perfect availability and is deliberately
// punitive below 90%.
func scoreUptime(p float64) float64 {
	var s float64
	switch {
	case p >= 99.9:
		s = 100
	case p >= 99:
		s = 95
	case p >= 95:
		s = 80 + (p-95)*3
	case p >= 90:
		s = 50 + (p-90)*6
	default:
		s = p * 0.5
	}
	return clampScore(s)
}

// scoreAge ramps from a floor of 20 for brand-new accounts to 100 at two
// years. Age alone never zeroes reputation.
func scoreAge(createdAt, now time.Time) float64 {
	d := now.Sub(createdAt).Hours() / 24

	var s float64
	switch {
	case d < 7:
		s = 20
	case d < 30:
		s = 20 + (d-7)*1.3
	case d < 90:
		s = 50 + (d-30)*0.42
	case d < 365:
		s = 75 + (d-90)*0.073
	case d < 730:
		s = 95 + (d-365)*0.014
	default:
		s = 100
	}
	return clampScore(s)
}

// scoreConnections rewards network breadth with the same floor-of-20
// policy as age: 5 connections = 50, 20 = 75, 50+ = 100.
func scoreConnections(c int) float64 {
	var s float64
	switch {
	case c <= 0:
		s = 20
	case c < 5:
		s = 20 + float64(c)*6
	case c < 20:
		s = 50 + float64(c-5)*1.67
	case c < 50:
		s = 75 + float64(c-20)*0.83
	default:
		s = 100
	}
	return clampScore(s)
}

func clampScore(s float64) float64 {
	return math.Max(0, math.Min(100, s))
}
