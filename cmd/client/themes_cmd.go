package main

import (
	"fmt"

	"github.com/hearth-chat/hearth/internal/config"
	"github.com/hearth-chat/hearth/internal/themes"
	"github.com/spf13/cobra"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the available themes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current := themes.DefaultName
		if cfg, err := config.Load(configPath); err == nil && cfg.Theme != "" {
			current = cfg.Theme
		}
		for _, name := range themes.ListAvailableThemes() {
			marker := "  "
			if name == current {
				marker = "* "
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%-20s %s\n", marker, name, themes.GetThemeDisplayName(name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themesCmd)
}
