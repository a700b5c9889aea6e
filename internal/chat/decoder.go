package chat

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"
)

// recordPrefix marks stream records that carry a payload; anything else
// on the wire is ignored.
const recordPrefix = "data: "

// EventType discriminates stream events.
type EventType string

const (
	EventContent        EventType = "content"
	EventSources        EventType = "sources"
	EventConversationID EventType = "conversation_id"
	EventDone           EventType = "done"
	EventError          EventType = "error"
)

// Event is one decoded unit of the chat stream. Exactly the fields for
// its Type are set. Done and Error are terminal: no further events are
// valid for the same request.
type Event struct {
	Type           EventType
	Content        string
	Sources        []types.Source
	ConversationID string
	Message        string // error message for EventError
}

// Terminal reports whether no further events may follow.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// wireRecord is the JSON payload carried by one record.
type wireRecord struct {
	Type           string         `json:"type"`
	Content        string         `json:"content,omitempty"`
	Sources        []types.Source `json:"sources,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// decoder reassembles newline-delimited records from arbitrarily split
// chunks. It holds only the tail that has not yet formed a complete
// record; one decoder belongs to exactly one in-flight request.
type decoder struct {
	tail string
	log  zerolog.Logger
}

// feed appends a chunk and returns the events decoded from every record
// completed by it. The final piece after the last newline stays in the
// tail; it may be a record split across chunk boundaries.
func (d *decoder) feed(chunk string) []Event {
	d.tail += chunk

	parts := strings.Split(d.tail, "\n")
	d.tail = parts[len(parts)-1]

	var events []Event
	for _, line := range parts[:len(parts)-1] {
		if ev, ok := d.decodeLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

// decodeLine decodes one complete record. Records without the payload
// prefix, with unparsable payloads, or with unknown types are dropped;
// a bad record never aborts the stream.
func (d *decoder) decodeLine(line string) (Event, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, recordPrefix) {
		return Event{}, false
	}

	payload := strings.TrimPrefix(line, recordPrefix)
	var rec wireRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		d.log.Debug().Err(err).Msg("skipping unparsable stream record")
		return Event{}, false
	}

	switch rec.Type {
	case "content":
		return Event{Type: EventContent, Content: rec.Content}, true
	case "sources":
		return Event{Type: EventSources, Sources: rec.Sources}, true
	case "conversation_id":
		return Event{Type: EventConversationID, ConversationID: rec.ConversationID}, true
	case "done":
		return Event{Type: EventDone}, true
	case "error":
		return Event{Type: EventError, Message: rec.Message}, true
	default:
		d.log.Debug().Str("type", rec.Type).Msg("skipping record with unknown type")
		return Event{}, false
	}
}
