// Command assistctl is the assistant operations CLI. It talks straight to
// the database and the generator, which makes it useful for smoke-testing
// trigger rules and prompts without the HTTP layer.
//
// Usage:
//
//	assistctl evaluate --user 9f1b... --screen fantasy/team
//	assistctl chat --user 9f1b... "quem devo escolher como capitao?"
//	assistctl execute --user 9f1b... --type NAVIGATE_TO --param route=mercado
//	assistctl dismiss --user 9f1b... --kind NO_CAPTAIN
//	assistctl purge-dismissals
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/assist"
	"github.com/ciclismopt/assist/internal/config"
	"github.com/ciclismopt/assist/internal/db"
	"github.com/ciclismopt/assist/internal/llm"
	"github.com/ciclismopt/assist/internal/parser"
	"github.com/ciclismopt/assist/internal/repo"
	"github.com/ciclismopt/assist/internal/trigger"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "assistctl",
		Short: "CiclismoPT assistant operations CLI",
	}

	root.AddCommand(evaluateCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(executeCmd())
	root.AddCommand(dismissCmd())
	root.AddCommand(purgeDismissalsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// evaluate command
// --------------------------------------------------------------------------

func evaluateCmd() *cobra.Command {
	var userRaw, screen string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate triggers for a user on a screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				uid, err := uuid.Parse(userRaw)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}

				coord := buildCoordinator(ctx, cfg, pool)
				sug := coord.OnScreenChange(ctx, uid, action.NormalizeRoute(screen))
				if sug == nil {
					logger.Info("No trigger fired", "user", uid, "screen", screen)
					return nil
				}
				return printJSON(sug)
			})
		},
	}
	cmd.Flags().StringVar(&userRaw, "user", "", "User UUID")
	cmd.Flags().StringVar(&screen, "screen", action.RouteHome, "Screen route or alias")
	cmd.MarkFlagRequired("user")
	return cmd
}

// --------------------------------------------------------------------------
// chat command
// --------------------------------------------------------------------------

func chatCmd() *cobra.Command {
	var userRaw string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the assistant a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				uid, err := uuid.Parse(userRaw)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}

				coord := buildCoordinator(ctx, cfg, pool)
				start := time.Now()
				out := coord.Chat(ctx, uid, args[0])
				logger.Info("Chat answered",
					"source", out.Source,
					"actions", len(out.Actions),
					"duration", time.Since(start).Round(time.Millisecond))
				return printJSON(out)
			})
		},
	}
	cmd.Flags().StringVar(&userRaw, "user", "", "User UUID")
	cmd.MarkFlagRequired("user")
	return cmd
}

// --------------------------------------------------------------------------
// execute command
// --------------------------------------------------------------------------

func executeCmd() *cobra.Command {
	var userRaw, kind, title string
	var params []string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a single assistant action",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				uid, err := uuid.Parse(userRaw)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}

				a := action.Action{
					Kind:   action.Kind(kind),
					Title:  title,
					Params: map[string]string{},
				}
				for _, p := range params {
					key, value, found := strings.Cut(p, "=")
					if !found {
						return fmt.Errorf("invalid --param %q, expected key=value", p)
					}
					a.Params[key] = value
				}

				coord := buildCoordinator(ctx, cfg, pool)
				return printJSON(coord.ExecuteAction(ctx, uid, a))
			})
		},
	}
	cmd.Flags().StringVar(&userRaw, "user", "", "User UUID")
	cmd.Flags().StringVar(&kind, "type", "", "Action type (NAVIGATE_TO, BUY_CYCLIST, ...)")
	cmd.Flags().StringVar(&title, "title", "", "Action title")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Action parameter key=value (repeatable)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("type")
	return cmd
}

// --------------------------------------------------------------------------
// dismiss command
// --------------------------------------------------------------------------

func dismissCmd() *cobra.Command {
	var userRaw, kind string
	cmd := &cobra.Command{
		Use:   "dismiss",
		Short: "Dismiss a trigger kind for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				uid, err := uuid.Parse(userRaw)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}

				store := trigger.NewPGDismissalStore(pool)
				if err := store.Dismiss(ctx, uid, trigger.Kind(kind), time.Now()); err != nil {
					return err
				}
				logger.Info("Dismissed", "user", uid, "kind", kind)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userRaw, "user", "", "User UUID")
	cmd.Flags().StringVar(&kind, "kind", "", "Trigger kind")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("kind")
	return cmd
}

// --------------------------------------------------------------------------
// purge-dismissals command
// --------------------------------------------------------------------------

func purgeDismissalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge-dismissals",
		Short: "Delete dismissals past the quiet window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := trigger.NewPGDismissalStore(pool)
				n, err := store.Purge(ctx, time.Now().Add(-cfg.DismissWindow))
				if err != nil {
					return err
				}
				logger.Info("Purged expired dismissals", "count", n)
				return nil
			})
		},
	}
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// buildCoordinator wires a full coordinator over the connection pool, using
// Gemini when configured and canned replies otherwise.
func buildCoordinator(ctx context.Context, cfg *config.Config, pool *db.Pool) *assist.Coordinator {
	teams := repo.NewPGTeamRepo(pool)
	riders := repo.NewPGRiderRepo(pool)
	races := repo.NewPGRaceRepo(pool)

	var gen llm.Generator = llm.Canned{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiDailyLimit, logger)
		if err != nil {
			logger.Warn("Gemini unavailable, using canned replies", "error", err)
		} else {
			gen = gemini
		}
	}

	engine := trigger.NewEngine(trigger.NewPGDismissalStore(pool), trigger.Config{
		Cooldown:      cfg.TriggerCooldown,
		DismissWindow: cfg.DismissWindow,
		IdleThreshold: cfg.IdleThreshold,
	}, logger)

	return assist.NewCoordinator(assist.Deps{
		Engine:    engine,
		Executor:  action.NewExecutor(teams, riders, logger),
		Parser:    parser.New(logger),
		Generator: gen,
		Teams:     teams,
		Races:     races,
	}, cfg, logger)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run handles config loading, DB connection, and context cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
