// Package action defines the typed commands the assistant can propose and a
// dispatcher that executes them against the fantasy repositories.
package action

// Kind identifies what an action does when the user taps it.
type Kind string

const (
	KindNavigateTo           Kind = "NAVIGATE_TO"
	KindBuyCyclist           Kind = "BUY_CYCLIST"
	KindSellCyclist          Kind = "SELL_CYCLIST"
	KindSetCaptain           Kind = "SET_CAPTAIN"
	KindActivateCyclist      Kind = "ACTIVATE_CYCLIST"
	KindDeactivateCyclist    Kind = "DEACTIVATE_CYCLIST"
	KindUseTripleCaptain     Kind = "USE_TRIPLE_CAPTAIN"
	KindUseWildcard          Kind = "USE_WILDCARD"
	KindShowHelp             Kind = "SHOW_HELP"
	KindShowRiderStats       Kind = "SHOW_RIDER_STATS"
	KindCompareRiders        Kind = "COMPARE_RIDERS"
	KindExplainRules         Kind = "EXPLAIN_RULES"
)

// Priority orders actions when a response carries more than one.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Action is a single suggested command. Params carries kind-specific data:
// route targets for navigation, rider ids or names for roster moves, help
// topics for SHOW_HELP.
type Action struct {
	Kind     Kind              `json:"type"`
	Title    string            `json:"title"`
	Params   map[string]string `json:"params,omitempty"`
	Priority Priority          `json:"priority,omitempty"`
}

// Param returns the named parameter or "" when absent. Safe on a nil map.
func (a Action) Param(key string) string {
	return a.Params[key]
}

// IsTeamScoped reports whether executing the action requires the user to
// already have a fantasy team.
func (a Action) IsTeamScoped() bool {
	switch a.Kind {
	case KindBuyCyclist, KindSellCyclist, KindSetCaptain,
		KindActivateCyclist, KindDeactivateCyclist,
		KindUseTripleCaptain, KindUseWildcard:
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Results — tagged union over the four execution outcomes
// --------------------------------------------------------------------------

// Status tags the outcome of executing an action.
type Status string

const (
	StatusNavigate     Status = "navigate"
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
	StatusRequiresAuth Status = "requires_auth"
)

// Result is the outcome of dispatching one action. Exactly one of Route or
// Message is meaningful depending on Status: Navigate carries Route, the
// other three carry Message.
type Result struct {
	Status  Status `json:"status"`
	Route   string `json:"route,omitempty"`
	Message string `json:"message,omitempty"`
}

func Navigate(route string) Result {
	return Result{Status: StatusNavigate, Route: route}
}

func Success(msg string) Result {
	return Result{Status: StatusSuccess, Message: msg}
}

func Failure(msg string) Result {
	return Result{Status: StatusError, Message: msg}
}

func RequiresAuth(msg string) Result {
	return Result{Status: StatusRequiresAuth, Message: msg}
}
