// Package chat provides the streaming client for the retrieval-
// augmented assistant. A request produces a lazy sequence of typed
// events decoded incrementally from the response body.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/logging"
	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

// Options configures the chat client.
type Options struct {
	// BaseURL is the server URL (e.g. "http://localhost:8000").
	BaseURL string
	// HTTPClient overrides the default client. The default carries no
	// timeout: responses stream for as long as the assistant talks.
	HTTPClient *http.Client
}

// Client sends chat requests and decodes the streamed responses.
type Client struct {
	options    Options
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a chat client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 0}
	}
	return &Client{
		options:    opts,
		httpClient: httpClient,
		log:        logging.Component("chat"),
	}
}

// Send posts a message and returns the response stream. The caller owns
// the stream and must Close it; canceling ctx aborts the request and
// any in-flight reads.
func (c *Client) Send(ctx context.Context, accessToken string, req types.ChatRequest) (*Stream, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	requestID := ulid.Make().String()
	log := c.log.With().Str("request", requestID).Logger()

	url := strings.TrimRight(c.options.BaseURL, "/") + "/api/v1/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Request-ID", requestID)
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("chat request failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	log.Debug().Str("conversation", req.ConversationID).Msg("chat stream started")
	return newStream(resp.Body, log), nil
}
