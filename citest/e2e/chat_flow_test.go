package e2e_test

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/api"
	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/chat"
	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

var _ = Describe("Chat streaming", func() {
	var accessToken string

	BeforeEach(func() {
		apiClient := api.NewClient(api.Options{BaseURL: backend.BaseURL()})
		resp, err := apiClient.Login(ctx, "ana", "secret")
		Expect(err).NotTo(HaveOccurred())
		accessToken = resp.AccessToken
	})

	collect := func(stream *chat.Stream) ([]chat.Event, error) {
		defer stream.Close()
		var events []chat.Event
		for {
			ev, err := stream.Recv()
			if err != nil {
				return events, err
			}
			events = append(events, ev)
		}
	}

	It("streams an answer with sources and a conversation id", func() {
		backend.ChatRecords = []string{
			`data: {"type":"conversation_id","conversation_id":"conv-7"}`,
			`data: {"type":"content","content":"The roadmap "}`,
			`data: {"type":"content","content":"was approved."}`,
			`data: {"type":"sources","sources":[{"meeting_id":"m1","title":"Weekly Sync","score":0.92}]}`,
			`data: {"type":"done"}`,
		}

		client := chat.NewClient(chat.Options{BaseURL: backend.BaseURL()})
		stream, err := client.Send(ctx, accessToken, types.ChatRequest{
			Message: "What happened to the roadmap?",
			Filters: &types.ChatFilters{ProjectIDs: []string{"p1"}},
		})
		Expect(err).NotTo(HaveOccurred())

		events, err := collect(stream)
		Expect(err).To(Equal(io.EOF))
		Expect(events).To(HaveLen(5))

		var answer strings.Builder
		for _, ev := range events {
			if ev.Type == chat.EventContent {
				answer.WriteString(ev.Content)
			}
		}
		Expect(answer.String()).To(Equal("The roadmap was approved."))
		Expect(events[0].ConversationID).To(Equal("conv-7"))
		Expect(events[3].Sources).To(HaveLen(1))
		Expect(events[3].Sources[0].MeetingID).To(Equal("m1"))
		Expect(events[4].Type).To(Equal(chat.EventDone))
	})

	It("surfaces a server error record while keeping prior content", func() {
		backend.ChatRecords = []string{
			`data: {"type":"content","content":"Partial "}`,
			`data: {"type":"error","message":"retrieval index unavailable"}`,
		}

		client := chat.NewClient(chat.Options{BaseURL: backend.BaseURL()})
		stream, err := client.Send(ctx, accessToken, types.ChatRequest{Message: "hello"})
		Expect(err).NotTo(HaveOccurred())

		events, err := collect(stream)
		Expect(events).To(HaveLen(2))
		Expect(events[0].Content).To(Equal("Partial "))

		var serr *chat.ServerError
		Expect(errors.As(err, &serr)).To(BeTrue())
		Expect(serr.Message).To(Equal("retrieval index unavailable"))
	})

	It("rejects unauthenticated requests", func() {
		client := chat.NewClient(chat.Options{BaseURL: backend.BaseURL()})
		_, err := client.Send(ctx, "", types.ChatRequest{Message: "hello"})
		Expect(err).To(HaveOccurred())
	})
})
