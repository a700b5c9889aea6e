package event

import "github.com/MichalPlaza/meeting-synthesis-sub001/pkg/types"

// Notification kinds for NotificationRequested events.
const (
	NotifySuccess = "success"
	NotifyError   = "error"
)

// SessionChangedData is the data for session.changed events.
type SessionChangedData struct {
	Status string             `json:"status"`
	UserID string             `json:"userID,omitempty"`
	User   *types.UserProfile `json:"user,omitempty"`
}

// ChannelStateData is the data for channel.state events.
type ChannelStateData struct {
	State  string `json:"state"`
	UserID string `json:"userID,omitempty"`
}

// NotificationRequestedData is the data for notification.requested events.
// ID is client-assigned and stable so the presentation layer can
// de-duplicate; Ref is the server-side object the notice refers to.
type NotificationRequestedData struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"` // success | error
	Title string `json:"title"`
	Ref   string `json:"ref"`
}

// MeetingInvalidatedData is the data for meeting.invalidated events.
type MeetingInvalidatedData struct {
	MeetingID string `json:"meetingID"`
}
