package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/chat"
	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

var (
	chatConversation string
	chatFiltersFile  string
	chatProjects     []string
	chatMeetings     []string
	chatShowSources  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <message...>",
	Short: "Ask the assistant about your meetings",
	Long: `Send a question to the retrieval-augmented assistant and stream the
answer as it is generated.

Examples:
  meetingsync chat "What was decided about the Q3 roadmap?"
  meetingsync chat --project p1 "Summarize last week's standups"
  meetingsync chat --conversation c42 "And who owns the follow-up?"
  meetingsync chat --filters filters.yaml "What changed?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Conversation ID to continue")
	chatCmd.Flags().StringVar(&chatFiltersFile, "filters", "", "YAML file with retrieval filters")
	chatCmd.Flags().StringArrayVarP(&chatProjects, "project", "p", nil, "Restrict retrieval to project(s)")
	chatCmd.Flags().StringArrayVarP(&chatMeetings, "meeting", "m", nil, "Restrict retrieval to meeting(s)")
	chatCmd.Flags().BoolVar(&chatShowSources, "sources", true, "Print source citations after the answer")
}

func runChat(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	session, err := app.restore(cmd.Context())
	if err != nil {
		return err
	}

	filters, err := buildFilters()
	if err != nil {
		return err
	}

	client := chat.NewClient(chat.Options{BaseURL: app.cfg.ServerURL})
	stream, err := client.Send(cmd.Context(), session.AccessToken, types.ChatRequest{
		Message:        strings.Join(args, " "),
		ConversationID: chatConversation,
		Filters:        filters,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	var sources []types.Source
	conversationID := chatConversation

	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			var serr *chat.ServerError
			if errors.As(err, &serr) {
				fmt.Println()
				return fmt.Errorf("assistant error: %s", serr.Message)
			}
			return err
		}

		switch ev.Type {
		case chat.EventContent:
			fmt.Print(ev.Content)
		case chat.EventSources:
			sources = append(sources, ev.Sources...)
		case chat.EventConversationID:
			conversationID = ev.ConversationID
		}
	}
	fmt.Println()

	if chatShowSources && len(sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range sources {
			fmt.Printf("  - %s (%s)\n", src.Title, src.MeetingID)
		}
	}
	if conversationID != "" && conversationID != chatConversation {
		fmt.Fprintf(os.Stderr, "\nconversation: %s (pass --conversation %s to continue)\n", conversationID, conversationID)
	}
	return nil
}

// buildFilters merges the --filters file with the repeatable flags; the
// flags win on overlap.
func buildFilters() (*types.ChatFilters, error) {
	var filters types.ChatFilters

	if chatFiltersFile != "" {
		data, err := os.ReadFile(chatFiltersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read filters file: %w", err)
		}
		if err := yaml.Unmarshal(data, &filters); err != nil {
			return nil, fmt.Errorf("failed to parse filters file: %w", err)
		}
	}
	if len(chatProjects) > 0 {
		filters.ProjectIDs = chatProjects
	}
	if len(chatMeetings) > 0 {
		filters.MeetingIDs = chatMeetings
	}

	if len(filters.ProjectIDs) == 0 && len(filters.MeetingIDs) == 0 &&
		filters.DateFrom == "" && filters.DateTo == "" {
		return nil, nil
	}
	return &filters, nil
}
