package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	session, err := app.restore(cmd.Context())
	if errors.Is(err, errNotLoggedIn) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	user := session.User
	fmt.Printf("Logged in as %s\n", user.Username)
	if user.DisplayName != "" {
		fmt.Printf("  Name:   %s\n", user.DisplayName)
	}
	fmt.Printf("  Role:   %s\n", user.Role)
	fmt.Printf("  Server: %s\n", app.cfg.ServerURL)
	return nil
}
