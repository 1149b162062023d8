package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ciclismopt/assist/internal/db"
)

// --------------------------------------------------------------------------
// TeamRepo
// --------------------------------------------------------------------------

type PGTeamRepo struct {
	pool *db.Pool
}

func NewPGTeamRepo(pool *db.Pool) *PGTeamRepo {
	return &PGTeamRepo{pool: pool}
}

func (r *PGTeamRepo) ByUser(ctx context.Context, userID uuid.UUID) (*Team, error) {
	return r.scanTeam(r.pool.QueryRow(ctx, "team_by_user", userID))
}

func (r *PGTeamRepo) ByID(ctx context.Context, teamID uuid.UUID) (*Team, error) {
	return r.scanTeam(r.pool.QueryRow(ctx, "team_by_id", teamID))
}

func (r *PGTeamRepo) scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.CaptainRiderID,
		&t.WildcardAvailable, &t.WildcardActive, &t.FreeTransfers, &t.PendingTransfers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan team: %w", err)
	}
	return &t, nil
}

func (r *PGTeamRepo) RosterSize(ctx context.Context, teamID uuid.UUID) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, "team_roster_count", teamID).Scan(&n); err != nil {
		return 0, fmt.Errorf("roster count: %w", err)
	}
	return n, nil
}

func (r *PGTeamRepo) SetCaptain(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	if _, err := r.pool.Exec(ctx, "team_set_captain", teamID, riderID); err != nil {
		return fmt.Errorf("set captain: %w", err)
	}
	return nil
}

func (r *PGTeamRepo) SetWildcardActive(ctx context.Context, teamID uuid.UUID, active bool) error {
	if _, err := r.pool.Exec(ctx, "team_set_wildcard", teamID, active); err != nil {
		return fmt.Errorf("set wildcard: %w", err)
	}
	return nil
}

func (r *PGTeamRepo) AddRider(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	if _, err := r.pool.Exec(ctx, "team_add_rider", teamID, riderID); err != nil {
		return fmt.Errorf("add rider: %w", err)
	}
	return nil
}

func (r *PGTeamRepo) RemoveRider(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	if _, err := r.pool.Exec(ctx, "team_remove_rider", teamID, riderID); err != nil {
		return fmt.Errorf("remove rider: %w", err)
	}
	return nil
}

func (r *PGTeamRepo) InRoster(ctx context.Context, teamID uuid.UUID, riderID int64) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, "rider_in_roster", teamID, riderID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rider in roster: %w", err)
	}
	return true, nil
}

func (r *PGTeamRepo) BumpPendingTransfers(ctx context.Context, teamID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, "team_bump_pending", teamID); err != nil {
		return fmt.Errorf("bump pending transfers: %w", err)
	}
	return nil
}

func (r *PGTeamRepo) SetRiderActive(ctx context.Context, teamID uuid.UUID, riderID int64, active bool) error {
	if _, err := r.pool.Exec(ctx, "team_set_rider_active", teamID, riderID, active); err != nil {
		return fmt.Errorf("set rider active: %w", err)
	}
	return nil
}

func (r *PGTeamRepo) ActivateTripleCaptain(ctx context.Context, teamID uuid.UUID, raceID int64) error {
	if _, err := r.pool.Exec(ctx, "team_triple_captain", teamID, raceID); err != nil {
		return fmt.Errorf("activate triple captain: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// RiderRepo
// --------------------------------------------------------------------------

type PGRiderRepo struct {
	pool *db.Pool
}

func NewPGRiderRepo(pool *db.Pool) *PGRiderRepo {
	return &PGRiderRepo{pool: pool}
}

func (r *PGRiderRepo) ByID(ctx context.Context, id int64) (*Rider, error) {
	return scanRider(r.pool.QueryRow(ctx, "rider_by_id", id))
}

func (r *PGRiderRepo) ByName(ctx context.Context, name string) (*Rider, error) {
	return scanRider(r.pool.QueryRow(ctx, "rider_by_name", name))
}

func (r *PGRiderRepo) OnTeam(ctx context.Context, teamID uuid.UUID) ([]Rider, error) {
	rows, err := r.pool.Query(ctx, "riders_on_team", teamID)
	if err != nil {
		return nil, fmt.Errorf("riders on team: %w", err)
	}
	defer rows.Close()

	var riders []Rider
	for rows.Next() {
		var rd Rider
		if err := rows.Scan(&rd.ID, &rd.Name, &rd.TeamName, &rd.Price, &rd.FormScore); err != nil {
			return nil, fmt.Errorf("scan rider: %w", err)
		}
		riders = append(riders, rd)
	}
	return riders, rows.Err()
}

func scanRider(row pgx.Row) (*Rider, error) {
	var rd Rider
	err := row.Scan(&rd.ID, &rd.Name, &rd.TeamName, &rd.Price, &rd.FormScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan rider: %w", err)
	}
	return &rd, nil
}

// --------------------------------------------------------------------------
// RaceRepo
// --------------------------------------------------------------------------

type PGRaceRepo struct {
	pool *db.Pool
}

func NewPGRaceRepo(pool *db.Pool) *PGRaceRepo {
	return &PGRaceRepo{pool: pool}
}

func (r *PGRaceRepo) Next(ctx context.Context) (*Race, error) {
	var rc Race
	err := r.pool.QueryRow(ctx, "next_race").Scan(&rc.ID, &rc.Name, &rc.StartsAt, &rc.TransferDeadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("next race: %w", err)
	}
	return &rc, nil
}

func (r *PGRaceRepo) Upcoming(ctx context.Context, limit int) ([]Race, error) {
	rows, err := r.pool.Query(ctx, "upcoming_races", limit)
	if err != nil {
		return nil, fmt.Errorf("upcoming races: %w", err)
	}
	defer rows.Close()

	var races []Race
	for rows.Next() {
		var rc Race
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.StartsAt, &rc.TransferDeadline); err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		races = append(races, rc)
	}
	return races, rows.Err()
}
