package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steveire/grantlee/internal/config"
	"github.com/steveire/grantlee/internal/logger"
)

const ver = "v0.1.0"

// runtimeEnv is the state shared by all commands once flags are parsed.
type runtimeEnv struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

var rt = new(runtimeEnv)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := command().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "grantlee",
		Short: "Text templates and Qt Linguist catalogs",
		Long: `grantlee renders Django-style text templates, localized through Qt
Linguist TS catalogs or go-i18n bundles, and manages those catalogs:
validation, merges, conversion and LLM-assisted translation.`,
		Version:           ver,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.log != nil {
				_ = rt.log.Sync()
			}
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rt.configPath, "config", "", "TOML config file (default $GRANTLEE_CONFIG)")
	pf.StringVar(&rt.dbPath, "db", "", "workbench database path")
	pf.StringVar(&rt.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(
		renderCommand(),
		codegenCommand(),
		tsCommand(),
		projectCommand(),
		providerCommand(),
		jobCommand(),
		promptCommand(),
	)
	return rootCmd
}

func printf(cmd *cobra.Command, format string, a ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}

func setup(*cobra.Command, []string) error {
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	if rt.dbPath != "" {
		cfg.DBPath = rt.dbPath
	}
	if rt.logLevel != "" {
		cfg.LogLevel = rt.logLevel
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	rt.cfg, rt.log = cfg, log
	return nil
}

// withApp opens the workbench for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *App) error) error {
	a, err := NewApp(rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
