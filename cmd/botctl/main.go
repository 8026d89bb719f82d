package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/app"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// commands annotated offline run without config or connections
const offlineAnnotation = "offline"

var (
	jsonOutput bool
	verbose    bool

	logger *slog.Logger
	ops    *app.Ops
)

var rootCmd = &cobra.Command{
	Use:           "botctl",
	Short:         "Operator tool for the GNDC WhatsApp bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[offlineAnnotation] == "true" {
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = util.NewLoggerWithLevel(level)

		ctx, cancel := context.WithTimeout(cmd.Context(), constants.AppTimeout.Build)
		defer cancel()
		ops, err = app.BuildOps(ctx, cfg, logger)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ops.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(hashTokenCmd)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
