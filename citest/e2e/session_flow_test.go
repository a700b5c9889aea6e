package e2e_test

import (
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/api"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/auth"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/credstore"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/event"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/realtime"
)

// harness wires the full client stack against the mock backend, the
// way the CLI does it.
type harness struct {
	bus     *event.Bus
	store   *credstore.Store
	session *auth.Manager
	channel *realtime.Channel
	detach  func()

	mu            sync.Mutex
	notifications []event.NotificationRequestedData
	invalidations []event.MeetingInvalidatedData
}

func newHarness(dir string) *harness {
	h := &harness{
		bus:   event.NewBus(),
		store: credstore.New(filepath.Join(dir, "credentials.json")),
	}

	apiClient := api.NewClient(api.Options{BaseURL: backend.BaseURL()})
	h.session = auth.NewManager(apiClient, h.store, h.bus)
	h.channel = realtime.NewChannel(realtime.Options{
		BaseURL: backend.WSBaseURL(),
		Bus:     h.bus,
	})
	h.detach = h.channel.Attach()

	h.bus.Subscribe(event.NotificationRequested, func(ev event.Event) {
		if data, ok := ev.Data.(event.NotificationRequestedData); ok {
			h.mu.Lock()
			h.notifications = append(h.notifications, data)
			h.mu.Unlock()
		}
	})
	h.bus.Subscribe(event.MeetingInvalidated, func(ev event.Event) {
		if data, ok := ev.Data.(event.MeetingInvalidatedData); ok {
			h.mu.Lock()
			h.invalidations = append(h.invalidations, data)
			h.mu.Unlock()
		}
	})

	return h
}

func (h *harness) teardown() {
	h.detach()
	h.channel.Close()
	h.bus.Close()
}

// seed writes a valid credential file, as if an earlier process had
// logged in.
func (h *harness) seed(username string) {
	access, refresh := backend.IssueCredentials(username)
	err := h.store.Save(&credstore.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
	})
	Expect(err).NotTo(HaveOccurred())
}

func (h *harness) notificationCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.notifications)
}

func (h *harness) invalidationCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.invalidations)
}

var _ = Describe("Session and realtime flow", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(GinkgoT().TempDir())
	})

	AfterEach(func() {
		h.teardown()
	})

	Describe("Session restore", func() {
		It("resolves to anonymous without network when no credentials exist", func() {
			status := h.session.RestoreSession(ctx)
			Expect(status).To(Equal(auth.StatusAnonymous))
			Expect(backend.RefreshCalls()).To(BeZero())
			Expect(h.channel.State()).To(Equal(realtime.StateClosed))
		})

		It("restores a stored session and opens the realtime channel", func() {
			h.seed("ana")

			status := h.session.RestoreSession(ctx)
			Expect(status).To(Equal(auth.StatusAuthenticated))
			Expect(h.session.Snapshot().User.Username).To(Equal("ana"))

			Eventually(h.channel.State, 2*time.Second).Should(Equal(realtime.StateOpen))
			Eventually(func() int { return backend.LiveConns("u1") }, 2*time.Second).Should(Equal(1))
		})

		It("falls back to anonymous and clears credentials when the refresh token is revoked", func() {
			h.seed("ana")
			backend.RevokeRefreshTokens()

			status := h.session.RestoreSession(ctx)
			Expect(status).To(Equal(auth.StatusAnonymous))
			Expect(h.store.Exists()).To(BeFalse(), "stale credentials must be cleared")
			Expect(h.channel.State()).To(Equal(realtime.StateClosed))
		})
	})

	Describe("Processing notifications", func() {
		BeforeEach(func() {
			h.seed("ana")
			Expect(h.session.RestoreSession(ctx)).To(Equal(auth.StatusAuthenticated))
			Eventually(func() int { return backend.LiveConns("u1") }, 2*time.Second).Should(Equal(1))
		})

		It("turns a completed meeting frame into exactly one notification and one invalidation", func() {
			err := backend.PushFrame("u1", map[string]any{
				"event_type": "meeting.processed",
				"status":     "completed",
				"title":      "Weekly Sync",
				"meeting_id": "m1",
			})
			Expect(err).NotTo(HaveOccurred())

			Eventually(h.notificationCount, 2*time.Second).Should(Equal(1))
			Eventually(h.invalidationCount, 2*time.Second).Should(Equal(1))
			Consistently(h.notificationCount, 300*time.Millisecond).Should(Equal(1))

			h.mu.Lock()
			defer h.mu.Unlock()
			Expect(h.notifications[0].Kind).To(Equal(event.NotifySuccess))
			Expect(h.notifications[0].Title).To(Equal("Weekly Sync"))
			Expect(h.notifications[0].Ref).To(Equal("m1"))
			Expect(h.notifications[0].ID).NotTo(BeEmpty())
			Expect(h.invalidations[0].MeetingID).To(Equal("m1"))
		})

		It("maps a failed meeting frame to an error notification", func() {
			err := backend.PushFrame("u1", map[string]any{
				"event_type": "meeting.processed",
				"status":     "failed",
				"title":      "Weekly Sync",
				"meeting_id": "m1",
			})
			Expect(err).NotTo(HaveOccurred())

			Eventually(h.notificationCount, 2*time.Second).Should(Equal(1))
			h.mu.Lock()
			defer h.mu.Unlock()
			Expect(h.notifications[0].Kind).To(Equal(event.NotifyError))
		})

		It("drops malformed and unknown frames without dying", func() {
			Expect(backend.PushFrame("u1", map[string]any{"event_type": "mystery"})).To(Succeed())

			Consistently(h.notificationCount, 300*time.Millisecond).Should(BeZero())
			Expect(h.channel.State()).To(Equal(realtime.StateOpen))
		})
	})

	Describe("Logout", func() {
		It("closes the channel and clears the credential file", func() {
			h.seed("ana")
			Expect(h.session.RestoreSession(ctx)).To(Equal(auth.StatusAuthenticated))
			Eventually(func() int { return backend.LiveConns("u1") }, 2*time.Second).Should(Equal(1))

			h.session.Logout()

			Eventually(h.channel.State, 2*time.Second).Should(Equal(realtime.StateClosed))
			Eventually(func() int { return backend.LiveConns("u1") }, 2*time.Second).Should(BeZero())
			Expect(h.store.Exists()).To(BeFalse())

			// Frames for the dead connection must not surface.
			Consistently(h.notificationCount, 300*time.Millisecond).Should(BeZero())
		})
	})

	Describe("Login", func() {
		It("opens the channel for the newly authenticated user", func() {
			apiClient := api.NewClient(api.Options{BaseURL: backend.BaseURL()})
			resp, err := apiClient.Login(ctx, "ana", "secret")
			Expect(err).NotTo(HaveOccurred())

			Expect(h.session.Login(resp.AccessToken, resp.User, resp.RefreshToken)).To(Succeed())

			Eventually(h.channel.State, 2*time.Second).Should(Equal(realtime.StateOpen))
			Expect(h.store.Exists()).To(BeTrue())
		})
	})
})
