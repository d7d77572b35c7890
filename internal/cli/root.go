// Package cli defines the Cobra commands for liftlog-session, a terminal
// client that drives the active workout directly through session storage.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
)

var version = "dev" // set via ldflags at build time

// annotationRaw marks commands that must see the stored record before the
// tracker restores (and possibly heals) it.
const annotationRaw = "raw"

// app carries the persistent flags and the opened backends for one run.
type app struct {
	configPath string
	sqlitePath string
	redisAddr  string
	key        string
	userID     int
	verbose    bool

	log     *slog.Logger
	tracker *session.Tracker
	store   *session.Storage
	closers []func()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "liftlog-session",
		Short: "Drive the active LiftLog workout from the terminal",
		Long: `liftlog-session reads and edits the workout in progress.

It talks to the same session store as the LiftLog server: a local SQLite
file by default, or Redis, or whatever --config points at. Finishing a
workout needs --config so the history database is known.

Exercise and set positions are 1-based.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				a.close()
				return err
			}
			if cmd.Annotations[annotationRaw] != "" {
				return nil
			}
			if err := a.tracker.Restore(cmd.Context()); err != nil {
				a.close()
				return err
			}
			return nil
		},
	}

	home, _ := os.UserHomeDir()
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "server config file; its session and database settings are used")
	flags.StringVar(&a.sqlitePath, "sqlite", filepath.Join(home, ".liftlog", "session.db"), "SQLite session file")
	flags.StringVar(&a.redisAddr, "redis", "", "Redis address; overrides --sqlite")
	flags.StringVar(&a.key, "key", "", "session slot key (default "+session.DefaultKey+")")
	flags.IntVar(&a.userID, "user", 1, "user ID finished workouts are recorded for")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log storage activity to stderr")

	root.AddCommand(
		a.showCmd(),
		a.checkCmd(),
		a.startCmd(),
		a.completeCmd(),
		a.addSetCmd(),
		a.restCmd(),
		a.pauseCmd(),
		a.resumeCmd(),
		a.discardCmd(),
		a.finishCmd(),
	)

	// Post-run hooks are skipped when RunE fails, so backends are released here.
	for _, sub := range root.Commands() {
		if sub.RunE == nil {
			continue
		}
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.close()
			return run(cmd, args)
		}
	}
	return root
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// open selects the session medium and, with --config, connects the history
// database as the tracker's recorder.
func (a *app) open(ctx context.Context, stderr io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var kv session.KV
	var recorder session.Recorder
	key := a.key

	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		if key == "" {
			key = cfg.Session.Key
		}
		switch cfg.Session.Backend {
		case config.BackendRedis:
			kv, err = a.openRedis(ctx, &redis.Options{
				Addr:     cfg.Session.Redis.Addr,
				Password: cfg.Session.Redis.Password,
				DB:       cfg.Session.Redis.DB,
			})
			if err != nil {
				return err
			}
		case config.BackendSQLite:
			a.sqlitePath = cfg.Session.SQLitePath
		default:
			return errors.New("the memory session backend lives inside the server process and cannot be shared")
		}

		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		recorder = db
	} else if a.redisAddr != "" {
		var err error
		if kv, err = a.openRedis(ctx, &redis.Options{Addr: a.redisAddr}); err != nil {
			return err
		}
	}

	if kv == nil {
		sqlite, err := session.OpenSQLite(a.sqlitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = sqlite.Close() })
		kv = sqlite
	}

	a.store = session.NewStorage(kv, key, a.log)
	a.tracker = session.NewTracker(a.store, recorder, a.log)
	return nil
}

func (a *app) openRedis(ctx context.Context, opts *redis.Options) (session.KV, error) {
	client := redis.NewClient(opts)
	a.closers = append(a.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	return session.NewRedisKV(client), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
