package main

import (
	"fmt"
	"os"
	"time"

	"github.com/outofoffice3/org-guardrails/internal/dashboard"
	"github.com/outofoffice3/org-guardrails/internal/settings"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	v := viper.New()
	var rootCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the guardrails compliance dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, v)
		},
	}

	flags := rootCmd.Flags()
	flags.String("addr", ":8501", "address the dashboard listens on")
	flags.Int64("max-upload-bytes", 32<<20, "largest csv upload accepted, in bytes")
	flags.Int("max-datasets", 20, "uploads kept in memory before the oldest is evicted")
	flags.Duration("shutdown-timeout", 10*time.Second, "time allowed for in flight requests on shutdown")

	for key, flag := range map[string]string{
		"addr":             "addr",
		"max_upload_bytes": "max-upload-bytes",
		"max_datasets":     "max-datasets",
		"shutdown_timeout": "shutdown-timeout",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, v *viper.Viper) error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := settings.LoadDashboard(v)
	if err != nil {
		return fmt.Errorf("failed to load dashboard settings: %w", err)
	}
	logger.Info().
		Str("addr", cfg.Addr).
		Int64("max_upload_bytes", cfg.MaxUploadBytes).
		Int("max_datasets", cfg.MaxDatasets).
		Msg("dashboard settings loaded")

	api := dashboard.NewWebAPI(logger, dashboard.Config{
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		Store:           dashboard.NewStore(cfg.MaxDatasets, nil),
	})
	return api.Start(cmd.Context())
}
