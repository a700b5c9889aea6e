package types

// Meeting processing status values as reported by the server.
const (
	MeetingStatusUploaded   = "uploaded"
	MeetingStatusProcessing = "processing"
	MeetingStatusCompleted  = "completed"
	MeetingStatusFailed     = "failed"
)

// Meeting represents a recorded meeting and its processing state.
type Meeting struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"project_id"`
	Title     string      `json:"title"`
	Status    string      `json:"status"`
	Language  string      `json:"language,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Time      MeetingTime `json:"time"`
}

// MeetingTime contains meeting timestamps in unix milliseconds.
type MeetingTime struct {
	Uploaded  int64  `json:"uploaded"`
	Processed *int64 `json:"processed,omitempty"`
}

// Project represents a workspace grouping meetings.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Created     int64  `json:"created"`
}
