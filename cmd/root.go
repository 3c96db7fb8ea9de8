package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rcaprobe/topocheck/internal/config"
	"rcaprobe/topocheck/internal/expect"
	"rcaprobe/topocheck/internal/store"
)

const dbFileName = ".topocheck.db"

var (
	configFile string
	v          = config.NewViper()
	cfg        *config.Config
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "topocheck",
	Short:         "Rebuild topology, tree and RCA payloads as graphs and check their shape",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, configFile, nil)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := config.InitLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("file", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		config.Cleanup()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var failed *expect.FailedError
		if !errors.As(err, &failed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to topocheck.yaml (default: ./topocheck.yaml, ./config, ~/.config/topocheck)")
	flags.String("db", "", "Path to the snapshot database (env TOPOCHECK_DB)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")

	_ = v.BindPFlag("db", flags.Lookup("db"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
}

// DiscoverDB finds the database path using priority: --db/env/config > walk-up > XDG fallback.
// With create set, the XDG location is returned even if the file does not exist yet.
func DiscoverDB(create bool) (string, error) {
	// 1. Flag, TOPOCHECK_DB or config file
	if cfg != nil && cfg.DB != "" {
		if create {
			return cfg.DB, nil
		}
		if _, err := os.Stat(cfg.DB); err == nil {
			return cfg.DB, nil
		}
		return "", fmt.Errorf("database not found at %s", cfg.DB)
	}

	// 2. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, dbFileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 3. XDG fallback
	home, err := os.UserHomeDir()
	if err == nil {
		xdgDir := filepath.Join(home, ".local", "share", "topocheck")
		xdgPath := filepath.Join(xdgDir, "topocheck.db")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
		if create {
			if err := os.MkdirAll(xdgDir, 0o755); err != nil {
				return "", fmt.Errorf("creating %s: %w", xdgDir, err)
			}
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no %s found (set TOPOCHECK_DB, use --db, or run from a directory containing %s)", dbFileName, dbFileName)
}

// OpenDatabase discovers and opens the snapshot database
func OpenDatabase(ctx context.Context, create bool) (*store.DB, error) {
	path, err := DiscoverDB(create)
	if err != nil {
		return nil, err
	}
	return store.OpenDB(ctx, path, logger)
}
