package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var meetingsProject string

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "List meetings and their processing status",
	RunE:  runMeetingsList,
}

var meetingsShowCmd = &cobra.Command{
	Use:   "show <meeting-id>",
	Short: "Show one meeting",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeetingsShow,
}

func init() {
	meetingsCmd.PersistentFlags().StringVarP(&meetingsProject, "project", "p", "", "Filter by project ID")
	meetingsCmd.AddCommand(meetingsShowCmd)
}

func runMeetingsList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	session, err := app.restore(cmd.Context())
	if err != nil {
		return err
	}

	meetings, err := app.api.ListMeetings(cmd.Context(), session.AccessToken, meetingsProject)
	if err != nil {
		return err
	}

	if len(meetings) == 0 {
		fmt.Println("No meetings.")
		return nil
	}

	for _, m := range meetings {
		uploaded := time.UnixMilli(m.Time.Uploaded).Format("2006-01-02 15:04")
		fmt.Printf("%-26s %-12s %-16s %s\n", m.ID, m.Status, uploaded, m.Title)
	}
	return nil
}

func runMeetingsShow(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	session, err := app.restore(cmd.Context())
	if err != nil {
		return err
	}

	m, err := app.api.GetMeeting(cmd.Context(), session.AccessToken, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Meeting:  %s\n", m.Title)
	fmt.Printf("  ID:       %s\n", m.ID)
	fmt.Printf("  Project:  %s\n", m.ProjectID)
	fmt.Printf("  Status:   %s\n", m.Status)
	if m.Language != "" {
		fmt.Printf("  Language: %s\n", m.Language)
	}
	if len(m.Tags) > 0 {
		fmt.Printf("  Tags:     %v\n", m.Tags)
	}
	fmt.Printf("  Uploaded: %s\n", time.UnixMilli(m.Time.Uploaded).Format(time.RFC3339))
	if m.Time.Processed != nil {
		fmt.Printf("  Processed: %s\n", time.UnixMilli(*m.Time.Processed).Format(time.RFC3339))
	}
	return nil
}
