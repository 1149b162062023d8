// Package listener provides a Postgres LISTEN/NOTIFY consumer for team
// change events. It holds a dedicated pgx connection (not from the pool)
// listening on the `team_changed` channel.
//
// When a team mutation lands from another service (web checkout, admin
// tools), the Postgres trigger fires pg_notify and this consumer refreshes
// the affected user's cached state so the next trigger evaluation sees it.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ciclismopt/assist/internal/assist"
)

const (
	channel          = "team_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// TeamEvent is the JSON payload from pg_notify('team_changed', ...).
type TeamEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	TeamID    uuid.UUID `json:"team_id"`
	Change    string    `json:"change"` // transfer, captain, wildcard
	Timestamp int64     `json:"ts"`
}

// Start opens a dedicated connection and listens on the team_changed
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, coord *assist.Coordinator, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, coord, logger)
		if ctx.Err() != nil {
			logger.Info("Team change listener stopped (context cancelled)")
			return
		}

		logger.Error("Team change listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, coord *assist.Coordinator, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Team change listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event TeamEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse team change event",
				"payload", notification.Payload, "error", err)
			continue
		}

		logger.Info("Team change event received",
			"user_id", event.UserID,
			"team_id", event.TeamID,
			"change", event.Change)

		// Process asynchronously to avoid blocking the listener
		go coord.OnTransfersChanged(ctx, event.UserID)
	}
}
