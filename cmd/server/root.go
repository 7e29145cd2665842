package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/server"
	"github.com/spf13/cobra"
)

var (
	configPath string
	hostFlag   string
	portFlag   int
	dbFlag     string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "hearthd",
	Short: "Development homeserver for the Hearth terminal client",
	Long: `hearthd is a small homeserver speaking the API and gateway the Hearth
client uses. It keeps users, rooms and history in a SQLite file.

On first run without a config file an interactive setup writes ` + server.ConfigFilename + `.`,
	Args:          cobra.NoArgs,
	RunE:          runServer,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Host to bind to (overrides config)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Port to bind to (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Path to database file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

// loadConfig resolves the config from the file and flags. Without an
// explicit --config and no file in the working directory, interactive runs
// go through first-run setup.
func loadConfig(interactive bool) (*server.Config, error) {
	var (
		config *server.Config
		err    error
	)
	switch {
	case configPath != "":
		config, err = server.LoadConfig(configPath)
	case fileExists(server.ConfigFilename):
		config, err = server.LoadConfig(server.ConfigFilename)
	case interactive:
		config, err = runFirstRunSetup()
	default:
		config = server.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}

	if hostFlag != "" {
		config.Host = hostFlag
	}
	if portFlag != 0 {
		config.Port = portFlag
	}
	if dbFlag != "" {
		config.DatabasePath = dbFlag
	}
	if debugMode {
		config.Debug = true
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.InitWriter(os.Stderr)
	logger.SetDebug(config.Debug)
	return config, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(true)
	if err != nil {
		return err
	}

	printBanner()

	srv, err := server.New(config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func printBanner() {
	banner := `
  _   _                 _   _     
 | | | | ___  __ _ _ __| |_| |__  
 | |_| |/ _ \/ _' | '__| __| '_ \ 
 |  _  |  __/ (_| | |  | |_| | | |
 |_| |_|\___|\__,_|_|   \__|_| |_|

  Development Homeserver
  ======================
`
	fmt.Println(banner)
}
