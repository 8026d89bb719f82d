package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/permission"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or replace the permission document",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored permission document",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := ops.Settings.LoadSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if jsonOutput {
			return printJSON(settings)
		}
		for i, entry := range settings.Entries() {
			role := "other"
			if i == 0 {
				role = "host"
			}
			printEntry(role, entry)
		}
		return nil
	},
}

var settingsApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Validate a YAML or JSON permission file and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := permission.LoadSettingsFile(args[0])
		if err != nil {
			return err
		}
		if err := ops.Settings.SaveSettings(cmd.Context(), settings); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		fmt.Printf("Settings applied: host %s, %d other entries\n", settings.Host.ID, len(settings.Other))
		return nil
	},
}

func printEntry(role string, entry domain.SettingsEntry) {
	state := "active"
	if entry.MakeInactive {
		state = "inactive"
	}
	fmt.Printf("%s %s (%s)\n", role, entry.ID, state)
	fmt.Printf("  commands: %s\n", strings.Join(entry.AllowedCommand, ", "))
	fmt.Printf("  events:   %s\n", strings.Join(entry.AllowedEvent, ", "))
	if len(entry.AllowInbox) > 0 {
		fmt.Printf("  inbox:    %s\n", strings.Join(entry.AllowInbox, ", "))
	}
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsApplyCmd)
}
