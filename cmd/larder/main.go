package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dukerupert/larder/internal/config"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/logging"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/predict"
	"github.com/dukerupert/larder/internal/server"
	"github.com/dukerupert/larder/internal/store"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "larder",
		Usage: "Pantry inventory and predictive shopping list server",
		Commands: []*cli.Command{
			serveCommand(),
			userCommand(),
			predictCommand(),
			reconcileCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	srv    *server.Server
	users  *store.UserStore
	close  func() error
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	srv, err := server.New(db, cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build server: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		srv:    srv,
		users:  store.NewUserStore(db),
		close:  db.Close,
	}, nil
}

func (a *app) userByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	return u, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(ctx, a)
		},
	}
}

func runServer(ctx context.Context, a *app) error {
	cfg := a.cfg.Server
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drop expired login-failure entries.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.srv.LoginGuard().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an account for HTTP Basic login",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("LARDER_PASSWORD"), Usage: "at least 8 characters"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := setup()
					if err != nil {
						return err
					}
					defer a.close()

					u, err := a.users.Create(ctx, c.String("email"), c.String("name"), c.String("password"))
					if err != nil {
						return err
					}
					fmt.Printf("created user %d (%s)\n", u.ID, u.Email)
					return nil
				},
			},
		},
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Show restock predictions for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.userByEmail(ctx, c.String("email"))
			if err != nil {
				return err
			}
			records, err := a.srv.Shopping().Predictions(ctx, u.ID)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(records)
			}

			policy := a.srv.Shopping().Policy()
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "IDENTITY\tNAME\tAVG DAYS\tCONFIDENCE\tDAYS LEFT\tSUGGEST")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.2f\t%.1f\t%t\n",
					r.Identity, r.ItemName, r.AverageIntervalDays, r.Confidence,
					predict.DaysUntilRestock(r), policy.ShouldSuggestRestock(r))
			}
			return tw.Flush()
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Add due suggestions to a user's shopping list and print it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.userByEmail(ctx, c.String("email"))
			if err != nil {
				return err
			}
			entries, err := a.srv.Shopping().Reconcile(ctx, u.ID)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(entries)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tITEM\tQTY\tKIND\tCONFIDENCE")
			for _, e := range entries {
				kind, conf := "definite", "-"
				if e.IsSuggested() {
					kind = "suggested"
					conf = fmt.Sprintf("%.2f", e.Suggestion.Confidence)
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", e.ID, e.ItemName, e.Quantity, kind, conf)
			}
			return tw.Flush()
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
