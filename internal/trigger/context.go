package trigger

import (
	"time"

	"github.com/ciclismopt/assist/internal/config"
)

// Context is the snapshot of user state a rule evaluation sees. The
// coordinator assembles it from the repositories and the live session; the
// engine never touches storage during evaluation.
type Context struct {
	Screen             string
	TeamSize           int
	HasCaptain         bool
	HoursUntilNextRace *float64
	PendingTransfers   int
	FreeTransfers      int
	WildcardAvailable  bool
	WildcardActive     bool
	ErrorCount         int
	IdleFor            time.Duration
	VisitedScreens     map[string]bool
}

// Visited reports whether the user has already been on a screen this session.
func (c *Context) Visited(screen string) bool {
	return c.VisitedScreens[screen]
}

// PenaltyPoints is the point cost of confirming the pending transfers now.
func (c *Context) PenaltyPoints() int {
	over := c.PendingTransfers - c.FreeTransfers
	if over <= 0 {
		return 0
	}
	return over * config.TransferPenaltyPoints
}

// hoursBelow reports whether the next race is known and closer than h hours.
func (c *Context) hoursBelow(h float64) bool {
	return c.HoursUntilNextRace != nil && *c.HoursUntilNextRace < h
}
