package router

// Tier is the cost/capability level a query is routed to.
type Tier string

const (
	// TierLocal answers from templates without any model call.
	TierLocal Tier = "local"
	// TierLight routes to the cheap model.
	TierLight Tier = "gemini-flash"
	// TierHeavy routes to the expensive model.
	TierHeavy Tier = "gemini-pro"
)

// QueryType labels the classification that produced a decision.
type QueryType string

const (
	QuerySimple  QueryType = "simple"
	QueryComplex QueryType = "complex"
	QueryHeavy   QueryType = "heavy"
)

// Decision captures the routing outcome for one query. It is created once
// per query and never mutated afterwards.
type Decision struct {
	Tier            Tier      `json:"tier"`
	MaxOutputTokens int       `json:"max_output_tokens"`
	QueryType       QueryType `json:"query_type"`
	Reason          string    `json:"reason"`
}

// Hard per-tier token ceilings. Callers may request less, never more; the
// generation bridge clamps to these regardless of the requested budget.
var tierCeilings = map[Tier]int{
	TierLocal: 256,
	TierLight: 800,
	TierHeavy: 1500,
}

// Ceiling returns the hard token cap for a tier. Unknown tiers get the
// local ceiling, the most conservative one.
func Ceiling(tier Tier) int {
	if c, ok := tierCeilings[tier]; ok {
		return c
	}
	return tierCeilings[TierLocal]
}

// Fallback is the fixed decision used when the template path declines a
// query that was classified simple. The classifier is not re-run.
func Fallback() Decision {
	return Decision{
		Tier:            TierLight,
		MaxOutputTokens: 600,
		QueryType:       QueryComplex,
		Reason:          "Fallback từ simple",
	}
}
