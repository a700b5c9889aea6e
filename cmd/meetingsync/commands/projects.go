package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	RunE:  runProjectsList,
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	session, err := app.restore(cmd.Context())
	if err != nil {
		return err
	}

	projects, err := app.api.ListProjects(cmd.Context(), session.AccessToken)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("No projects.")
		return nil
	}

	for _, p := range projects {
		fmt.Printf("%-26s %s\n", p.ID, p.Name)
		if p.Description != "" {
			fmt.Printf("%-26s %s\n", "", p.Description)
		}
	}
	return nil
}
