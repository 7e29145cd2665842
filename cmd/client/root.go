package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hearth-chat/hearth/internal/client"
	"github.com/hearth-chat/hearth/internal/config"
	"github.com/hearth-chat/hearth/internal/gateway"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/notification"
	"github.com/hearth-chat/hearth/internal/state"
	"github.com/hearth-chat/hearth/internal/themes"
	"github.com/spf13/cobra"
)

// passwordEnv names the environment variable read when -p is not given
const passwordEnv = "HEARTH_PASSWORD"

var (
	configPath   string
	usernameFlag string
	passwordFlag string
	themeFlag    string
	logPath      string
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "hearth [homeserver]",
	Short: "Terminal chat client for federated homeservers",
	Long: `Hearth is a terminal chat client. It logs in to a homeserver, lists the
rooms you have joined and shows their messages and members.

Keys: tab cycles panes, up/down move the selection, enter sends, k kicks
the selected member, y copies the selected message, q or esc quits.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runClient,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "Username or full user ID (overrides config)")
	rootCmd.Flags().StringVarP(&passwordFlag, "password", "p", "", "Password (or set "+passwordEnv+")")
	rootCmd.Flags().StringVarP(&themeFlag, "theme", "t", "", "Theme name or path to a theme file (overrides config)")
	rootCmd.Flags().StringVar(&logPath, "log", "", "Log file (default "+logger.DefaultPath()+")")
}

// loadConfig reads the config file and applies the command line overrides
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if len(args) > 0 {
		cfg.Homeserver = args[0]
	}
	if usernameFlag != "" {
		cfg.Username = usernameFlag
	}
	if themeFlag != "" {
		cfg.Theme = themeFlag
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	if cfg.LogPath == "" {
		cfg.LogPath = logger.DefaultPath()
	}
	return cfg, nil
}

func loadTheme(name string) *themes.Theme {
	theme, err := themes.GetTheme(name)
	if err != nil {
		logger.Warn("Failed to load theme %q: %v, using default", name, err)
		return themes.GetDefaultTheme()
	}
	return theme
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if _, err := gateway.ParseHomeserver(cfg.Homeserver); err != nil {
		return err
	}

	if err := logger.Init(cfg.LogPath); err != nil {
		return err
	}
	defer logger.Close()
	logger.SetDebug(debugMode)

	theme := loadTheme(cfg.Theme)

	username, password := cfg.Username, passwordFlag
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if username == "" || password == "" {
		username, password, err = client.PromptCredentials(cfg.Homeserver, username, theme)
		if errors.Is(err, client.ErrLoginCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Logging in to %s...\n", cfg.Homeserver)
	session, err := gateway.Login(ctx, cfg.Homeserver, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	session.BackfillLimit = cfg.BackfillLimit

	rec, queues, err := startSession(ctx, session, cfg)
	if err != nil {
		return err
	}

	app := client.NewApp(ctx, rec, queues, theme)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running client: %w", err)
	}
	return nil
}

// startSession performs the initial sync, loads every joined room and starts
// the background tasks that feed the returned queues until ctx is done.
func startSession(ctx context.Context, session *gateway.Session, cfg *config.Config) (*state.Reconciler, state.Queues, error) {
	fmt.Fprintln(os.Stderr, "Syncing rooms...")
	sync, err := session.SyncOnce(ctx)
	if err != nil {
		return nil, state.Queues{}, fmt.Errorf("initial sync failed: %w", err)
	}

	conv := state.NewConverter(session.Renderer())
	rooms := state.NewDirectory()
	for _, id := range sync.Rooms.Join {
		rooms.AddRoom(ctx, session.Room(id), conv)
	}
	logger.Info("Loaded %d rooms for %s", len(sync.Rooms.Join), session.UserID)

	queues := state.NewQueues()
	deps := state.Deps{
		Messenger: session,
		Converter: conv,
		Notifier:  notification.New(cfg.Notifications),
		Loader:    gateway.NewRoomLoader(ctx, session, conv, queues),
	}
	if cfg.Invites.AutoAccept {
		deps.Invites = gateway.NewInviteAcceptor(ctx, session, inviteBackoff(cfg.Invites))
	}
	rec := state.NewReconciler(session.UserID, rooms, deps)

	go func() {
		for _, ev := range gateway.PendingInvites(sync) {
			select {
			case queues.Membership <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	go session.SyncForever(ctx, queues)

	return rec, queues, nil
}

// inviteBackoff builds the invitation retry schedule from the config
func inviteBackoff(c config.InvitesConfig) gateway.Backoff {
	b := gateway.InviteBackoff()
	if c.InitialDelay.Duration > 0 {
		b.InitialDelay = c.InitialDelay.Duration
	}
	b.MaxTotal = c.MaxWait.Duration
	return b
}
