package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Hisho/common/version"
	"github.com/bdobrica/Hisho/internal/hisho/app"
	"github.com/bdobrica/Hisho/internal/hisho/config"
	"github.com/bdobrica/Hisho/internal/hisho/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hisho",
		Short:         "Hisho, a personal assistant bot for Matrix",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}
	root.PersistentFlags().String("config", "", "Path to a YAML config file.")
	root.PersistentFlags().String("env-file", "", "Path to a .env file (defaults to ./.env when present).")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Connect to Matrix and serve messages (default)",
		RunE:  runBot,
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	})
	return root
}

func runBot(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := observability.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	slog.Info("starting Hisho", "version", version.Version, "commit", version.GitCommit, "config", cfg)

	hisho, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize Hisho: %w", err)
	}
	defer hisho.Stop()

	return hisho.Run(context.Background())
}
