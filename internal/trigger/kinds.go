// Package trigger evaluates prioritized rules against the user's fantasy
// state and produces at most one proactive suggestion, throttled per kind by
// a cooldown and a persisted dismissal window.
package trigger

// Kind identifies a trigger rule. Each kind throttles independently.
type Kind string

const (
	KindTransferDeadline         Kind = "TRANSFER_DEADLINE"
	KindNoCaptain                Kind = "NO_CAPTAIN"
	KindRaceDeadline             Kind = "RACE_DEADLINE"
	KindIncompleteTeam           Kind = "INCOMPLETE_TEAM"
	KindWildcardOpportunity      Kind = "WILDCARD_OPPORTUNITY"
	KindTransferPenaltyThreshold Kind = "TRANSFER_PENALTY_THRESHOLD"
	KindRepeatedErrors           Kind = "REPEATED_ERRORS"
	KindFormDropAlert            Kind = "FORM_DROP_ALERT"
	KindUndervaluedCyclist       Kind = "UNDERVALUED_CYCLIST"
	KindFirstVisitMarket         Kind = "FIRST_VISIT_MARKET"
	KindFirstVisitMyTeam         Kind = "FIRST_VISIT_MY_TEAM"
	KindFirstVisitLeagues        Kind = "FIRST_VISIT_LEAGUES"
	KindIdleOnScreen             Kind = "IDLE_ON_SCREEN"
)

// priorities orders rules when several fire at once; higher wins. Equal
// priorities resolve by rule table order.
var priorities = map[Kind]int{
	KindTransferDeadline:         95,
	KindNoCaptain:                90,
	KindRaceDeadline:             85,
	KindIncompleteTeam:           80,
	KindWildcardOpportunity:      75,
	KindTransferPenaltyThreshold: 70,
	KindRepeatedErrors:           60,
	KindFormDropAlert:            55,
	KindUndervaluedCyclist:       50,
	KindFirstVisitMarket:         40,
	KindFirstVisitMyTeam:         40,
	KindFirstVisitLeagues:        40,
	KindIdleOnScreen:             30,
}

// Priority returns the rule priority for a kind, 0 for unknown kinds.
func (k Kind) Priority() int {
	return priorities[k]
}

// FirstVisit reports whether the kind is a one-shot onboarding tip.
func (k Kind) FirstVisit() bool {
	switch k {
	case KindFirstVisitMarket, KindFirstVisitMyTeam, KindFirstVisitLeagues:
		return true
	}
	return false
}
