// Package repo holds the data access layer for fantasy teams, riders, and
// races. Interfaces are accepted by the assistant packages; the pgx-backed
// implementations live alongside them.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Team is a user's fantasy roster state.
type Team struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Name              string
	CaptainRiderID    *int64
	WildcardAvailable bool
	WildcardActive    bool
	FreeTransfers     int
	PendingTransfers  int
}

// HasCaptain reports whether a captain is assigned.
func (t *Team) HasCaptain() bool {
	return t != nil && t.CaptainRiderID != nil
}

// Rider is a professional cyclist available in the market.
type Rider struct {
	ID        int64
	Name      string
	TeamName  string
	Price     float64
	FormScore *float64
}

// Race is a calendar event with a transfer deadline.
type Race struct {
	ID               int64
	Name             string
	StartsAt         time.Time
	TransferDeadline time.Time
}

// TeamRepo manages fantasy teams and their rosters.
type TeamRepo interface {
	ByUser(ctx context.Context, userID uuid.UUID) (*Team, error)
	ByID(ctx context.Context, teamID uuid.UUID) (*Team, error)
	RosterSize(ctx context.Context, teamID uuid.UUID) (int, error)
	SetCaptain(ctx context.Context, teamID uuid.UUID, riderID int64) error
	SetWildcardActive(ctx context.Context, teamID uuid.UUID, active bool) error
	AddRider(ctx context.Context, teamID uuid.UUID, riderID int64) error
	RemoveRider(ctx context.Context, teamID uuid.UUID, riderID int64) error
	InRoster(ctx context.Context, teamID uuid.UUID, riderID int64) (bool, error)
	BumpPendingTransfers(ctx context.Context, teamID uuid.UUID) error
	SetRiderActive(ctx context.Context, teamID uuid.UUID, riderID int64, active bool) error
	ActivateTripleCaptain(ctx context.Context, teamID uuid.UUID, raceID int64) error
}

// RiderRepo looks up cyclists by id or fuzzy name.
type RiderRepo interface {
	ByID(ctx context.Context, id int64) (*Rider, error)
	ByName(ctx context.Context, name string) (*Rider, error)
	OnTeam(ctx context.Context, teamID uuid.UUID) ([]Rider, error)
}

// RaceRepo exposes the upcoming calendar.
type RaceRepo interface {
	Next(ctx context.Context) (*Race, error)
	Upcoming(ctx context.Context, limit int) ([]Race, error)
}
