package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

func TestSendStreamsResponse(t *testing.T) {
	var gotReq types.ChatRequest
	var gotAccept, gotAuth, gotRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/chat", r.URL.Path)
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, record := range []string{
			`data: {"type":"conversation_id","conversation_id":"c1"}`,
			`data: {"type":"content","content":"hello"}`,
			`data: {"type":"done"}`,
		} {
			io.WriteString(w, record+"\n")
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	stream, err := client.Send(context.Background(), "tok-1", types.ChatRequest{
		Message:        "what was decided?",
		ConversationID: "c1",
	})
	require.NoError(t, err)
	defer stream.Close()

	events, err := drain(t, stream)
	assert.Equal(t, io.EOF, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventConversationID, events[0].Type)
	assert.Equal(t, "hello", events[1].Content)
	assert.Equal(t, EventDone, events[2].Type)

	assert.Equal(t, "text/event-stream", gotAccept)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.True(t, gotReq.Stream, "streaming must be forced on")
	assert.Equal(t, "what was decided?", gotReq.Message)
}

func TestSendNonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	_, err := client.Send(context.Background(), "tok-1", types.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestSendContextCancelAbortsStream(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"content\",\"content\":\"hello\"}\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(Options{BaseURL: server.URL})
	stream, err := client.Send(ctx, "tok-1", types.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "hello", ev.Content)

	cancel()
	_, err = stream.Recv()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err, "an aborted request is not a graceful completion")
}
