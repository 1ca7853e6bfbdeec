// Package cli provides the command-line interface for blazer.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/omarriaga/blazer/internal/cache"
	"github.com/omarriaga/blazer/internal/config"
	"github.com/omarriaga/blazer/internal/registry"
)

// Version information (set at build time).
var (
	Version = "0.1.0"
)

// app carries the loaded configuration and lazily constructed
// collaborators shared by all commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	once     sync.Once
	reg      *registry.Registry
	store    cache.Store
	storeErr error
	closers  []func() error
}

// Registry constructs the cache store and data sources on first use, so
// commands like version never touch a database.
func (a *app) Registry() (*registry.Registry, error) {
	a.once.Do(func() {
		if a.cfg.CachePath != "" {
			store := cache.NewSQLiteStore(a.logger)
			if err := store.Open(a.cfg.CachePath); err != nil {
				a.storeErr = err
				return
			}
			a.store = store
			a.closers = append(a.closers, store.Close)
		} else {
			a.store = cache.NewMemoryStore()
		}

		reg, err := registry.New(a.cfg, a.store, a.logger)
		if err != nil {
			a.storeErr = err
			return
		}
		a.reg = reg
	})
	if a.storeErr != nil {
		return nil, a.storeErr
	}
	return a.reg, nil
}

// Close releases every resource the app opened.
func (a *app) Close() {
	if a.reg != nil {
		a.reg.Close()
	}
	for _, c := range a.closers {
		_ = c()
	}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "blazer",
		Short: "Blazer - multi-backend SQL statement runner",
		Long: `Blazer runs SQL statements against configured data sources with
per-source timeouts, rollback-only transactions, and read-through
result caching.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.Close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("blazer %s\n", Version))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./blazer.yaml)")
	rootCmd.PersistentFlags().String("environment", "", "Environment name (development is permissive)")
	rootCmd.PersistentFlags().String("cache-path", "", "SQLite cache database path (empty for in-memory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newTablesCommand(a))
	rootCmd.AddCommand(newCostCommand(a))
	rootCmd.AddCommand(newSourcesCommand(a))
	rootCmd.AddCommand(newREPLCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
