package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lrpsolve/internal/api"
	"lrpsolve/internal/config"
	"lrpsolve/internal/logger"
	"lrpsolve/internal/store"
)

const defaultListen = ":8080"

// newServeCmd runs the side-car on its own: run history from DATABASE_URL
// and the progress stream of solver processes publishing to REDIS_URL.
func newServeCmd() *cobra.Command {
	var configPath, listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run history, metrics and progress of other lrp processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			addr := cfg.ListenAddr
			if cmd.Flags().Changed("listen") {
				addr = listen
			}
			if addr == "" {
				addr = defaultListen
				if v := os.Getenv("PORT"); v != "" {
					addr = ":" + v
				}
			}
			log := logger.Init(cfg.LogLevel, cfg.LogFormat)
			if cfg.DatabaseURL == "" {
				log.Warn("DATABASE_URL not set, run history is empty and in-memory")
			}
			if cfg.RedisURL == "" {
				log.Warn("REDIS_URL not set, no progress from other processes will arrive")
			}

			ctx := cmd.Context()
			st, err := store.Open(ctx, cfg.DatabaseURL, cfg.Migrate)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()
			broker, closeBroker, err := openBroker(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer closeBroker()

			srv := api.NewServer(st, broker, log)
			srv.Settings = map[string]any{
				"mode":     "serve",
				"postgres": cfg.DatabaseURL != "",
				"redis":    cfg.RedisURL != "",
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default :8080 or :$PORT)")
	return cmd
}
