// papertrade runs a simulated stock market where every user owns a virtual
// portfolio and per-symbol trading bots.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"papertrade/internal/app"
	"papertrade/internal/config"
	"papertrade/internal/logger"
)

const defaultConfigPath = "configs/config.yaml"

var cfgPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	rootCmd := &cobra.Command{
		Use:           "papertrade",
		Short:         "Simulated market with per-user trading bots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $PAPERTRADE_CONFIG or "+defaultConfigPath+")")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tickCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tick scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath()
			cfg, cleanup, err := loadConfig(path)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.NewApp(cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx, path)
		},
	}
}

func tickCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run ticks back to back against the configured store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			cfg, cleanup, err := loadConfig(resolveConfigPath())
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.NewApp(cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			defer a.Close()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rep, err := a.RunTicks(ctx, count)
			fmt.Fprintf(cmd.OutOrStdout(), "ticks=%d users=%d trades=%d failed_users=%d errors=%d took=%s\n",
				rep.Ticks, rep.Users, rep.Trades, rep.Failed, rep.Errors, rep.Took)
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ticks to run")
	return cmd
}

func resolveConfigPath() string {
	if strings.TrimSpace(cfgPath) != "" {
		return cfgPath
	}
	if env := os.Getenv("PAPERTRADE_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

// loadConfig reads the config and points the loggers at their files. The
// returned cleanup closes those files.
func loadConfig(path string) (*config.Config, func(), error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	var files []*os.File
	cleanup := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	logFile, err := openLogFile(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		files = append(files, logFile)
		mw := io.MultiWriter(os.Stdout, logFile)
		log.SetOutput(mw)
		logger.SetOutput(mw)
	}
	tradeFile, err := openLogFile(cfg.App.TradeLogPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open trade log: %w", err)
	}
	if tradeFile != nil {
		files = append(files, tradeFile)
		logger.SetTradeWriter(tradeFile)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ config loaded (env=%s, store=%s, file=%s)", cfg.App.Env, cfg.Store.Driver, path)
	return cfg, cleanup, nil
}

func openLogFile(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
