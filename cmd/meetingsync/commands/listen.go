package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/event"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/realtime"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Follow realtime processing notifications",
	Long: `Open the realtime channel for the logged-in user and print processing
notifications as they arrive. The channel follows the session: logging
out in another window closes it, logging back in reopens it.

Runs until interrupted.`,
	RunE: runListen,
}

func runListen(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := event.Default()

	unsubNotify := bus.Subscribe(event.NotificationRequested, func(ev event.Event) {
		data, ok := ev.Data.(event.NotificationRequestedData)
		if !ok {
			return
		}
		marker := "+"
		if data.Kind == event.NotifyError {
			marker = "!"
		}
		fmt.Printf("[%s] %s (meeting %s)\n", marker, data.Title, data.Ref)
	})
	defer unsubNotify()

	unsubState := bus.Subscribe(event.ChannelState, func(ev event.Event) {
		data, ok := ev.Data.(event.ChannelStateData)
		if !ok {
			return
		}
		fmt.Fprintf(os.Stderr, "channel: %s\n", data.State)
	})
	defer unsubState()

	channel := realtime.NewChannel(realtime.Options{
		BaseURL:   app.cfg.WebsocketURL(),
		Bus:       bus,
		Reconnect: app.cfg.Reconnect,
	})
	detach := channel.Attach()
	defer detach()
	defer channel.Close()

	// External logouts and logins must reach the channel too.
	if err := app.session.WatchExternal(ctx); err != nil {
		return err
	}

	if _, err := app.restore(ctx); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "listening (ctrl-c to stop)")
	<-ctx.Done()
	return nil
}
