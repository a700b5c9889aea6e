// Package commands provides the CLI commands for meetingsync.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/api"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/auth"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/config"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/credstore"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/event"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "meetingsync",
	Short: "Meetingsync - meeting intelligence client",
	Long: `Meetingsync is a client for the meeting-synthesis platform. It keeps
a durable session, follows processing notifications over a realtime
channel, and streams answers from the retrieval-augmented assistant.

Run 'meetingsync login' first, then 'meetingsync listen' to follow
notifications or 'meetingsync chat' to ask about your meetings.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand, show help
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := logging.DefaultConfig()
		logCfg.Level = logging.ParseLevel(logLevel)
		if printLogs {
			logCfg.Pretty = true
		} else {
			logCfg.Output = io.Discard
		}
		logging.Init(logCfg)
	},
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (overrides configuration)")

	// Version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("meetingsync %s (%s)\n", Version, BuildTime))

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(meetingsCmd)
	rootCmd.AddCommand(projectsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// app bundles everything a command needs to talk to the backend.
type app struct {
	cfg     *config.Config
	api     *api.Client
	store   *credstore.Store
	session *auth.Manager
}

// newApp loads configuration and wires the shared client stack.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	apiClient := api.NewClient(api.Options{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.Timeout(),
	})
	store := credstore.New(paths.CredentialsPath())

	return &app{
		cfg:     cfg,
		api:     apiClient,
		store:   store,
		session: auth.NewManager(apiClient, store, event.Default()),
	}, nil
}

// errNotLoggedIn is returned by commands that need a session when the
// restored session resolves to anonymous.
var errNotLoggedIn = errors.New("not logged in; run 'meetingsync login' first")

// restore resolves the durable session and returns its snapshot. The
// result is never partial: either a full token-and-profile set or an
// anonymous session.
func (a *app) restore(ctx context.Context) (auth.Session, error) {
	if status := a.session.RestoreSession(ctx); status != auth.StatusAuthenticated {
		return auth.Session{Status: status}, errNotLoggedIn
	}
	return a.session.Snapshot(), nil
}
