// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ciclismopt/assist/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and assistant
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Fantasy teams
		"team_by_user":      "SELECT id, user_id, name, captain_rider_id, wildcard_available, wildcard_active, free_transfers, pending_transfers FROM fantasy_teams WHERE user_id = $1",
		"team_by_id":        "SELECT id, user_id, name, captain_rider_id, wildcard_available, wildcard_active, free_transfers, pending_transfers FROM fantasy_teams WHERE id = $1",
		"team_roster_count": "SELECT count(*) FROM fantasy_team_riders WHERE team_id = $1",
		"team_set_captain":  "UPDATE fantasy_teams SET captain_rider_id = $2, updated_at = now() WHERE id = $1",
		"team_set_wildcard": "UPDATE fantasy_teams SET wildcard_active = $2, updated_at = now() WHERE id = $1",
		"team_add_rider":    "INSERT INTO fantasy_team_riders (team_id, rider_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		"team_remove_rider": "DELETE FROM fantasy_team_riders WHERE team_id = $1 AND rider_id = $2",
		"team_bump_pending": "UPDATE fantasy_teams SET pending_transfers = pending_transfers + 1, updated_at = now() WHERE id = $1",
		"team_set_rider_active": "UPDATE fantasy_team_riders SET is_active = $3 WHERE team_id = $1 AND rider_id = $2",
		"team_triple_captain":   "UPDATE fantasy_teams SET triple_captain_race_id = $2, updated_at = now() WHERE id = $1",

		// Riders
		"rider_by_id":     "SELECT id, name, team_name, price, form_score FROM riders WHERE id = $1",
		"rider_by_name":   "SELECT id, name, team_name, price, form_score FROM riders WHERE name ILIKE '%' || $1 || '%' ORDER BY form_score DESC NULLS LAST LIMIT 1",
		"riders_on_team":  "SELECT r.id, r.name, r.team_name, r.price, r.form_score FROM riders r JOIN fantasy_team_riders tr ON tr.rider_id = r.id WHERE tr.team_id = $1",
		"rider_in_roster": "SELECT 1 FROM fantasy_team_riders WHERE team_id = $1 AND rider_id = $2",

		// Races
		"next_race":          "SELECT id, name, starts_at, transfer_deadline FROM races WHERE starts_at > now() ORDER BY starts_at ASC LIMIT 1",
		"upcoming_races":     "SELECT id, name, starts_at, transfer_deadline FROM races WHERE starts_at > now() ORDER BY starts_at ASC LIMIT $1",
		"race_by_id":         "SELECT id, name, starts_at, transfer_deadline FROM races WHERE id = $1",

		// Trigger dismissals
		"dismissal_upsert": "INSERT INTO trigger_dismissals (user_id, trigger_kind, dismissed_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, trigger_kind) DO UPDATE SET dismissed_at = EXCLUDED.dismissed_at",
		"dismissal_get":    "SELECT dismissed_at FROM trigger_dismissals WHERE user_id = $1 AND trigger_kind = $2",
		"dismissals_all":   "SELECT trigger_kind, dismissed_at FROM trigger_dismissals WHERE user_id = $1",
		"dismissals_purge": "DELETE FROM trigger_dismissals WHERE dismissed_at < $1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
