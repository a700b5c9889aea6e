// Package realtime maintains the push-notification websocket. The
// connection lifecycle is derived from the authenticated user identity:
// the channel is open precisely while a user is authenticated, and at
// most one socket is ever live.
package realtime

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/auth"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/event"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/logging"
)

// State represents the channel connection state.
type State string

const (
	StateClosed     State = "closed"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
)

// Options configures the channel.
type Options struct {
	// BaseURL is the websocket base URL (e.g. "ws://localhost:8000").
	BaseURL string
	// Bus receives channel.state, notification.requested and
	// meeting.invalidated events.
	Bus *event.Bus
	// Dialer overrides the default websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
	// Reconnect enables automatic reconnection with exponential
	// backoff after a transport failure. Off by default: a later
	// identity observation reopens the channel anyway.
	Reconnect bool
}

// Channel owns zero or one live websocket. A socket handle exists only
// in the Connecting, Open and Closing states, and all access to it goes
// through the channel's state machine.
type Channel struct {
	opts   Options
	dialer *websocket.Dialer
	bus    *event.Bus
	log    zerolog.Logger

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	userID string
	// gen is bumped on every teardown or identity change; goroutines
	// from an older generation drop everything they were about to do.
	gen uint64

	retry *backoff.ExponentialBackOff
}

// NewChannel creates a channel in the Closed state.
func NewChannel(opts Options) *Channel {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Second
	retry.MaxInterval = 30 * time.Second
	retry.MaxElapsedTime = 0 // keep trying until identity changes

	return &Channel{
		opts:   opts,
		dialer: dialer,
		bus:    opts.Bus,
		log:    logging.Component("realtime"),
		state:  StateClosed,
		retry:  retry,
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attach subscribes the channel to session.changed events so its
// lifecycle follows the session manager. Returns an unsubscribe
// function; the caller still owns Close.
func (c *Channel) Attach() func() {
	return c.bus.Subscribe(event.SessionChanged, func(e event.Event) {
		data, ok := e.Data.(event.SessionChangedData)
		if !ok {
			return
		}
		switch auth.Status(data.Status) {
		case auth.StatusAuthenticated:
			c.Observe(data.UserID)
		case auth.StatusAnonymous:
			c.Observe("")
		}
		// StatusRestoring: identity not yet known, do nothing.
	})
}

// Observe reports the latest authenticated user id ("" for none) and
// derives the connection lifecycle from it. Observing the identity that
// is already connecting or connected is a no-op, so token rotation does
// not cause a reconnect. An identity change tears the old socket down
// before dialing the new one.
func (c *Channel) Observe(userID string) {
	c.mu.Lock()

	if userID == c.userID && (c.state == StateConnecting || c.state == StateOpen) {
		c.mu.Unlock()
		return
	}

	c.gen++
	gen := c.gen
	conn := c.conn
	c.conn = nil
	c.userID = userID

	if userID == "" {
		// A dial may still be in flight with no conn handle yet; the
		// state transition must resolve for subscribers either way.
		wasLive := c.state != StateClosed
		c.state = StateClosed
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		if wasLive {
			c.publishState(StateClosed, "")
		}
		return
	}

	c.state = StateConnecting
	c.retry.Reset()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.publishState(StateConnecting, userID)
	go c.connect(gen, userID)
}

// Close tears the channel down. No event is dispatched after Close
// returns, even for frames already in flight.
func (c *Channel) Close() {
	c.mu.Lock()
	c.gen++
	conn := c.conn
	c.conn = nil
	c.userID = ""
	wasLive := c.state != StateClosed
	if wasLive {
		c.state = StateClosing
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if wasLive {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		c.publishState(StateClosed, "")
	}
}

// connect dials the websocket for one generation.
func (c *Channel) connect(gen uint64, userID string) {
	url := c.opts.BaseURL + "/ws/" + userID
	conn, _, err := c.dialer.Dial(url, nil)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.state = StateClosed
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("user", userID).Msg("websocket dial failed")
		c.publishState(StateClosed, userID)
		c.maybeReconnect(gen, userID)
		return
	}

	c.conn = conn
	c.state = StateOpen
	c.retry.Reset()
	c.mu.Unlock()

	c.log.Info().Str("user", userID).Msg("realtime channel open")
	c.publishState(StateOpen, userID)
	go c.readLoop(gen, conn)
}

// readLoop reads frames until the transport fails or the generation is
// superseded.
func (c *Channel) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			c.conn = nil
			c.state = StateClosed
			userID := c.userID
			c.mu.Unlock()

			c.log.Info().Str("user", userID).Msg("realtime channel closed")
			c.publishState(StateClosed, userID)
			c.maybeReconnect(gen, userID)
			return
		}

		c.dispatch(gen, data)
	}
}

// maybeReconnect schedules a redial after a transport failure when
// reconnection is enabled and the identity has not changed since.
func (c *Channel) maybeReconnect(gen uint64, userID string) {
	if !c.opts.Reconnect {
		return
	}

	// retry is only touched under the lock; an identity observation may
	// Reset it concurrently with this failure path.
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	next := c.retry.NextBackOff()
	c.mu.Unlock()

	if next == backoff.Stop {
		return
	}

	time.AfterFunc(next, func() {
		c.mu.Lock()
		if gen != c.gen || c.userID != userID || c.state != StateClosed {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()

		c.publishState(StateConnecting, userID)
		go c.connect(gen, userID)
	})
}

// publishState emits channel.state. Called without the lock held.
func (c *Channel) publishState(state State, userID string) {
	if c.bus == nil {
		return
	}
	c.bus.PublishSync(event.Event{Type: event.ChannelState, Data: event.ChannelStateData{
		State:  string(state),
		UserID: userID,
	}})
}
