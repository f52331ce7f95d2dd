package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/config"
	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/logger"
	"github.com/lazysauce/collector/internal/provision"
	"github.com/lazysauce/collector/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "lsctl",
	Short: "Administer a LazySauce collector deployment",
	Long: `lsctl manages the shard directory of a LazySauce collector: advertisers,
tenants and their shard databases. It reads the same LAZYSAUCE_* settings
as the server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command needs to talk to the directory and shards.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	router *store.Router
	dir    *directory.Directory
	prov   *provision.Provisioner
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.LogMode, logger.Options{Dir: cfg.LogDir, Filename: cfg.LogFile})

	router, err := store.Open(ctx, cfg.StoreOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	dir, err := directory.New(router, cfg.CacheSize, log)
	if err != nil {
		router.Close()
		return nil, fmt.Errorf("directory: %w", err)
	}
	return &env{cfg: cfg, log: log, router: router, dir: dir, prov: provision.New(router, log)}, nil
}

func (e *env) Close() {
	e.router.Close()
	e.log.Sync()
}

// withEnv adapts a command body that needs an open env.
func withEnv(fn func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(ctx, e, cmd, args)
	}
}
