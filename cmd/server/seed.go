package main

import (
	"errors"
	"fmt"

	"github.com/hearth-chat/hearth/internal/server"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo users and rooms",
	Long: `Creates the users alice, bob and carol with a couple of rooms and some
history, for trying the client locally. Only runs on an empty database.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(false)
	if err != nil {
		return err
	}

	srv, err := server.New(config)
	if err != nil {
		return err
	}
	defer srv.Close()

	if err := srv.Handlers().Seed(); err != nil {
		if errors.Is(err, server.ErrAlreadySeeded) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already has users, nothing to do\n", config.DatabasePath)
			return nil
		}
		return fmt.Errorf("seed failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s\n", config.DatabasePath)
	for _, id := range srv.Handlers().SeedUserIDs() {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  password: %s\n", id, server.SeedPassword)
	}
	return nil
}
