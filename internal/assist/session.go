package assist

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciclismopt/assist/internal/trigger"
)

// eventBuffer bounds each subscriber channel; slow consumers drop events
// rather than block the coordinator.
const eventBuffer = 16

// teamState is the cached repository snapshot a session evaluates against.
// It refreshes asynchronously; stale data is acceptable between refreshes.
type teamState struct {
	teamID             *uuid.UUID
	teamSize           int
	hasCaptain         bool
	pendingTransfers   int
	freeTransfers      int
	wildcardAvailable  bool
	wildcardActive     bool
	hoursUntilNextRace *float64
}

// session is the per-user live state. All fields are guarded by mu; the
// coordinator never holds the lock across repository calls.
type session struct {
	mu sync.Mutex

	userID     uuid.UUID
	screen     string
	lastActive time.Time
	visited    map[string]bool
	errorCount int

	state teamState

	// refreshSeq is the newest refresh started; stateSeq is the one whose
	// result is currently applied. A completion older than stateSeq is
	// discarded.
	refreshSeq uint64
	stateSeq   uint64

	suggestion       *trigger.Suggestion
	suggestionExpiry time.Time

	// Each subscriber gets its own channel so two concurrent streams for the
	// same user both see every event.
	subs    map[int]chan Event
	nextSub int
}

func newSession(userID uuid.UUID, now time.Time) *session {
	return &session{
		userID:     userID,
		lastActive: now,
		visited:    map[string]bool{},
		subs:       map[int]chan Event{},
	}
}

// subscribe registers a new event channel and returns its id for removal.
func (s *session) subscribe() (int, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, eventBuffer)
	s.subs[id] = ch
	return id, ch
}

// unsubscribe removes and closes a subscriber channel.
func (s *session) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// emit fans an event out to every subscriber, dropping it for any that is
// not keeping up.
func (s *session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// snapshot builds the rule evaluation context from the cached state. Caller
// holds s.mu.
func (s *session) snapshotLocked(now time.Time) *trigger.Context {
	visited := make(map[string]bool, len(s.visited))
	for k, v := range s.visited {
		visited[k] = v
	}
	return &trigger.Context{
		Screen:             s.screen,
		TeamSize:           s.state.teamSize,
		HasCaptain:         s.state.hasCaptain,
		HoursUntilNextRace: s.state.hoursUntilNextRace,
		PendingTransfers:   s.state.pendingTransfers,
		FreeTransfers:      s.state.freeTransfers,
		WildcardAvailable:  s.state.wildcardAvailable,
		WildcardActive:     s.state.wildcardActive,
		ErrorCount:         s.errorCount,
		IdleFor:            now.Sub(s.lastActive),
		VisitedScreens:     visited,
	}
}
