package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/event"
	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

// Inbound frame kinds currently understood by the client.
const (
	frameMeetingProcessed = "meeting.processed"
)

// meetingProcessedFrame is the payload of a meeting.processed frame.
type meetingProcessedFrame struct {
	EventType string `json:"event_type"`
	Status    string `json:"status"` // completed | failed
	Title     string `json:"title"`
	MeetingID string `json:"meeting_id"`
}

// dispatch translates one inbound frame into bus events. Frames from a
// superseded generation, malformed frames and unrecognized kinds are
// dropped; dispatch never fails the connection.
func (c *Channel) dispatch(gen uint64, data []byte) {
	c.mu.Lock()
	live := gen == c.gen && c.state == StateOpen
	c.mu.Unlock()
	if !live {
		return
	}

	var head struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed frame")
		return
	}

	switch head.EventType {
	case frameMeetingProcessed:
		c.handleMeetingProcessed(data)
	default:
		c.log.Debug().Str("event_type", head.EventType).Msg("ignoring unrecognized frame kind")
	}
}

// handleMeetingProcessed republishes a processing-finished frame as a
// notification request plus a cache invalidation hint. Delivery is
// synchronous so frames are observed in arrival order.
func (c *Channel) handleMeetingProcessed(data []byte) {
	var frame meetingProcessedFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed meeting.processed frame")
		return
	}

	var kind string
	switch frame.Status {
	case types.MeetingStatusCompleted:
		kind = event.NotifySuccess
	case types.MeetingStatusFailed:
		kind = event.NotifyError
	default:
		c.log.Debug().Str("status", frame.Status).Msg("dropping frame with unknown status")
		return
	}

	if c.bus == nil {
		return
	}
	c.bus.PublishSync(event.Event{Type: event.NotificationRequested, Data: event.NotificationRequestedData{
		ID:    uuid.NewString(),
		Kind:  kind,
		Title: frame.Title,
		Ref:   frame.MeetingID,
	}})
	c.bus.PublishSync(event.Event{Type: event.MeetingInvalidated, Data: event.MeetingInvalidatedData{
		MeetingID: frame.MeetingID,
	}})
}
