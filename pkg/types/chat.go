package types

// ChatRequest is the body sent to the streaming chat endpoint.
type ChatRequest struct {
	Message        string       `json:"message"`
	ConversationID string       `json:"conversation_id,omitempty"`
	Filters        *ChatFilters `json:"filters,omitempty"`
	Stream         bool         `json:"stream"`
}

// ChatFilters narrows the retrieval scope of an assistant query.
type ChatFilters struct {
	ProjectIDs []string `json:"project_ids,omitempty" yaml:"project_ids"`
	MeetingIDs []string `json:"meeting_ids,omitempty" yaml:"meeting_ids"`
	DateFrom   string   `json:"date_from,omitempty" yaml:"date_from"`
	DateTo     string   `json:"date_to,omitempty" yaml:"date_to"`
}

// Source is a retrieval citation returned alongside an assistant answer.
type Source struct {
	MeetingID string  `json:"meeting_id"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet,omitempty"`
	Score     float64 `json:"score,omitempty"`
}
