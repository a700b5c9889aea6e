// Package testutil provides a mock meeting-synthesis backend for
// integration tests: password login, token refresh, the user profile
// endpoint, the realtime websocket, and the streaming chat endpoint.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

// MockBackend is an in-process stand-in for the meeting-synthesis
// server. All state is in memory and guarded by one mutex.
type MockBackend struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu            sync.Mutex
	passwords     map[string]string             // username -> password
	users         map[string]types.UserProfile  // username -> profile
	accessTokens  map[string]string             // access token -> username
	refreshTokens map[string]string             // refresh token -> username
	conns         map[string][]*websocket.Conn  // user id -> live sockets
	meetings      map[string]types.Meeting
	projects      []types.Project

	refreshCalls int
	meCalls      int
	dials        int

	// ChatRecords are the raw lines served by the chat endpoint, one
	// record per element, flushed individually.
	ChatRecords []string
	// RefreshFails makes the refresh endpoint reject every token.
	RefreshFails bool
}

// NewMockBackend starts a backend with one seeded user ("ana") and a
// small meeting fixture set.
func NewMockBackend() *MockBackend {
	b := &MockBackend{
		passwords:     make(map[string]string),
		users:         make(map[string]types.UserProfile),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		conns:         make(map[string][]*websocket.Conn),
		meetings:      make(map[string]types.Meeting),
	}

	b.AddUser("ana", "secret", types.UserProfile{
		ID:          "u1",
		Username:    "ana",
		DisplayName: "Ana Kovac",
		Role:        "member",
	})
	b.projects = []types.Project{
		{ID: "p1", Name: "Platform", Created: 1700000000000},
	}
	b.AddMeeting(types.Meeting{
		ID:        "m1",
		ProjectID: "p1",
		Title:     "Weekly Sync",
		Status:    types.MeetingStatusProcessing,
		Time:      types.MeetingTime{Uploaded: 1700000100000},
	})

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
	}))

	r.Post("/auth/login", b.handleLogin)
	r.Post("/auth/refresh-token", b.handleRefresh)
	r.Get("/users/me", b.handleMe)
	r.Get("/ws/{userID}", b.handleWebsocket)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/meetings", b.handleListMeetings)
		r.Get("/meetings/{meetingID}", b.handleGetMeeting)
		r.Get("/projects", b.handleListProjects)
		r.Post("/chat", b.handleChat)
	})

	b.server = httptest.NewServer(r)
	return b
}

// Close shuts the backend down, dropping all live websockets.
func (b *MockBackend) Close() {
	b.mu.Lock()
	for _, conns := range b.conns {
		for _, conn := range conns {
			conn.Close()
		}
	}
	b.conns = make(map[string][]*websocket.Conn)
	b.mu.Unlock()
	b.server.Close()
}

// BaseURL is the backend's HTTP base URL.
func (b *MockBackend) BaseURL() string {
	return b.server.URL
}

// WSBaseURL is the backend's websocket base URL.
func (b *MockBackend) WSBaseURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

// AddUser registers a login. Existing tokens are untouched.
func (b *MockBackend) AddUser(username, password string, profile types.UserProfile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passwords[username] = password
	b.users[username] = profile
}

// AddMeeting registers or replaces a meeting fixture.
func (b *MockBackend) AddMeeting(m types.Meeting) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meetings[m.ID] = m
}

// IssueCredentials mints a valid token pair for a registered user, as
// if a login had happened in some earlier process.
func (b *MockBackend) IssueCredentials(username string) (accessToken, refreshToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(username)
}

func (b *MockBackend) issueLocked(username string) (string, string) {
	access := "access-" + uuid.NewString()
	refresh := "refresh-" + uuid.NewString()
	b.accessTokens[access] = username
	b.refreshTokens[refresh] = username
	return access, refresh
}

// RevokeRefreshTokens invalidates every refresh token, simulating a
// server-side session purge.
func (b *MockBackend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshTokens = make(map[string]string)
}

// RefreshCalls reports how many times the refresh endpoint was hit.
func (b *MockBackend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// MeCalls reports how many times the profile endpoint was hit.
func (b *MockBackend) MeCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meCalls
}

// Dials reports how many websocket upgrades were accepted.
func (b *MockBackend) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// LiveConns reports the number of live websockets for a user.
func (b *MockBackend) LiveConns(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns[userID])
}

// PushFrame sends a JSON frame to every live websocket of a user.
func (b *MockBackend) PushFrame(userID string, frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	b.mu.Lock()
	conns := append([]*websocket.Conn(nil), b.conns[userID]...)
	b.mu.Unlock()

	if len(conns) == 0 {
		return fmt.Errorf("no live connection for user %s", userID)
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

func (b *MockBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.passwords[req.Username] == "" || b.passwords[req.Username] != req.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	user := b.users[req.Username]
	access, refresh := b.issueLocked(req.Username)
	writeJSON(w, types.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         &user,
	})
}

func (b *MockBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshCalls++

	username, ok := b.refreshTokens[req.RefreshToken]
	if !ok || b.RefreshFails {
		http.Error(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	access := "access-" + uuid.NewString()
	b.accessTokens[access] = username
	writeJSON(w, types.TokenResponse{AccessToken: access, TokenType: "bearer"})
}

func (b *MockBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.meCalls++
	username, ok := b.authenticateLocked(r)
	user := b.users[username]
	b.mu.Unlock()

	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, user)
}

func (b *MockBackend) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.dials++
	b.conns[userID] = append(b.conns[userID], conn)
	b.mu.Unlock()

	// Drain until the client hangs up, then drop the registration.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		b.mu.Lock()
		live := b.conns[userID][:0]
		for _, c := range b.conns[userID] {
			if c != conn {
				live = append(live, c)
			}
		}
		b.conns[userID] = live
		b.mu.Unlock()
		conn.Close()
	}()
}

func (b *MockBackend) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	if !b.requireAuth(w, r) {
		return
	}

	projectID := r.URL.Query().Get("project_id")

	b.mu.Lock()
	var meetings []types.Meeting
	for _, m := range b.meetings {
		if projectID == "" || m.ProjectID == projectID {
			meetings = append(meetings, m)
		}
	}
	b.mu.Unlock()

	writeJSON(w, meetings)
}

func (b *MockBackend) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	if !b.requireAuth(w, r) {
		return
	}

	b.mu.Lock()
	m, ok := b.meetings[chi.URLParam(r, "meetingID")]
	b.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, m)
}

func (b *MockBackend) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if !b.requireAuth(w, r) {
		return
	}

	b.mu.Lock()
	projects := append([]types.Project(nil), b.projects...)
	b.mu.Unlock()

	writeJSON(w, projects)
}

func (b *MockBackend) handleChat(w http.ResponseWriter, r *http.Request) {
	if !b.requireAuth(w, r) {
		return
	}

	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	b.mu.Lock()
	records := append([]string(nil), b.ChatRecords...)
	b.mu.Unlock()

	if len(records) == 0 {
		records = []string{
			`data: {"type":"conversation_id","conversation_id":"conv-1"}`,
			`data: {"type":"content","content":"No script configured."}`,
			`data: {"type":"done"}`,
		}
	}

	for _, record := range records {
		io.WriteString(w, record+"\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// requireAuth rejects requests without a valid bearer token.
func (b *MockBackend) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	b.mu.Lock()
	_, ok := b.authenticateLocked(r)
	b.mu.Unlock()

	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return ok
}

func (b *MockBackend) authenticateLocked(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", false
	}
	username, ok := b.accessTokens[token]
	return username, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
