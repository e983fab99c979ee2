package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateAgendaItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type AgendaItemResponse struct {
	ItemID      string           `json:"item_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
	Session     *SessionResponse `json:"session,omitempty"`
}

type AgendaItemListResponse struct {
	Items []AgendaItemResponse `json:"items"`
}

type OpenSessionRequest struct {
	AgendaItemID    string `json:"agenda_item_id"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

type SessionResponse struct {
	SessionID       string    `json:"session_id"`
	AgendaItemID    string    `json:"agenda_item_id"`
	OpenedAt        time.Time `json:"opened_at"`
	ClosesAt        time.Time `json:"closes_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Status          string    `json:"status"`
}

type SubmitVoteRequest struct {
	VoterID string `json:"voter_id"`
	Choice  string `json:"choice"`
}

// VoteResponse carries the masked voter identifier only; the raw identifier
// never leaves the admission path.
type VoteResponse struct {
	VoteID      string    `json:"vote_id"`
	SessionID   string    `json:"session_id"`
	MaskedVoter string    `json:"voter_id"`
	Choice      string    `json:"choice"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type TallyResponse struct {
	SessionID     string    `json:"session_id"`
	AgendaItemID  string    `json:"agenda_item_id"`
	ItemTitle     string    `json:"item_title,omitempty"`
	SessionStatus string    `json:"session_status"`
	OpenedAt      time.Time `json:"opened_at"`
	ClosesAt      time.Time `json:"closes_at"`
	Total         int64     `json:"total_votes"`
	Yes           int64     `json:"yes_votes"`
	No            int64     `json:"no_votes"`
	YesPercent    float64   `json:"yes_percent"`
	NoPercent     float64   `json:"no_percent"`
	Outcome       string    `json:"outcome"`
}
