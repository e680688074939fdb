package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"weather-wallpaper/internal/app"
	"weather-wallpaper/internal/config"
	"weather-wallpaper/internal/engine"
	"weather-wallpaper/internal/storage"
)

var (
	configPath string
	logLevel   string
)

var errNoMatch = errors.New("no matching wallpaper")

func main() {
	_ = godotenv.Load() // optional .env next to the binary's working dir

	rootCmd := &cobra.Command{
		Use:           "wallpaperd",
		Short:         "Pick the desktop background from the time of day and the weather",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file (json or yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides server.log_level")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(selectCmd())
	rootCmd.AddCommand(conditionsCmd())

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNoMatch) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *config.Loader, error) {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, nil, err
	}
	level := cfg.Server.LogLevel
	if logLevel != "" {
		level = logLevel
		cfg.Server.LogLevel = logLevel
	}
	config.SetupLogging(level)
	return cfg, loader, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the wallpaper daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info().Str("config", loader.Path()).Int("rules", len(cfg.Items)).Msg("starting")
			app.Run(cfg, loader)
			return nil
		},
	}
}

func selectCmd() *cobra.Command {
	var (
		condition string
		month     int
		hour      int
	)
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Print the wallpaper the rules pick for a condition and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			cond, err := engine.ParseCondition(condition)
			if err != nil {
				return err
			}
			if month < engine.FirstMonth || month > engine.LastMonth {
				return fmt.Errorf("month %d out of range", month)
			}
			if hour < engine.FirstHour || hour > engine.LastHour {
				return fmt.Errorf("hour %d out of range", hour)
			}

			ctx := context.Background()
			eng := engine.NewEngine()
			if cfg.Rules.Source == config.SourcePostgres {
				store, err := storage.New(ctx, cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				err = eng.BuildSnapshot(ctx, store)
				if err != nil {
					return err
				}
			} else if err := app.LoadFileRules(ctx, eng, cfg); err != nil {
				return err
			}

			sel, ok := eng.Select(cond, month, hour, engine.OSFileExists)
			if !ok {
				fmt.Fprintln(cmd.ErrOrStderr(), "no match")
				return errNoMatch
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t(tier=%s month=%d hour=%d)\n", sel.Path, sel.Tier, sel.Slot.Month, sel.Slot.Hour)
			return nil
		},
	}
	now := time.Now()
	cmd.Flags().StringVar(&condition, "condition", engine.Clear.String(), "weather condition")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "month 1-12")
	cmd.Flags().IntVar(&hour, "hour", now.Hour(), "hour 0-23")
	return cmd
}

func conditionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conditions",
		Short: "List weather conditions and what stands in for each",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, c := range engine.Conditions {
				var adj, loose []string
				for _, o := range engine.Conditions {
					if engine.IsAdjacent(o, c) {
						adj = append(adj, o.String())
					}
					if engine.IsLooselyAdjacent(o, c) {
						loose = append(loose, o.String())
					}
				}
				fmt.Fprintf(out, "%-13s adjacent: %-24s loosely: %s\n", c, strings.Join(adj, ","), strings.Join(loose, ","))
			}
			return nil
		},
	}
}
