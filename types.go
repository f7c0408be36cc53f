package fixflow

import (
	"math"
	"time"
)

// FeedbackKind is an engagement signal recorded against an issue.
type FeedbackKind string

// Feedback kinds accepted by the backend.
const (
	FeedbackView   FeedbackKind = "view"
	FeedbackUseful FeedbackKind = "useful"
)

// Valid reports whether k is a kind the backend accepts.
func (k FeedbackKind) Valid() bool {
	return k == FeedbackView || k == FeedbackUseful
}

// Issue is a stored problem/solution record.
type Issue struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Solution    string         `json:"solution"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ViewCount   int            `json:"view_count"`
	UsefulCount int            `json:"useful_count"`
}

// ApplyFeedback bumps the matching counter locally, mirroring what the
// backend does once the feedback call succeeds.
func (i *Issue) ApplyFeedback(kind FeedbackKind) {
	switch kind {
	case FeedbackView:
		i.ViewCount++
	case FeedbackUseful:
		i.UsefulCount++
	}
}

// IssueCreate is the caller-supplied part of an Issue.
// The backend assigns the id, timestamps and counters.
type IssueCreate struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Solution string         `json:"solution"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
}

// SearchResult is an Issue with its relevance score.
type SearchResult struct {
	Issue
	Score float64 `json:"score"`
}

// Percent returns the score as a rounded percentage.
func (r SearchResult) Percent() int {
	return int(math.Round(r.Score * 100))
}

// SearchQuery is the full backend search request.
// A zero Limit takes the client's configured search limit.
type SearchQuery struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit"`
	Filters map[string]any `json:"filters,omitempty"`
}

// HealthStatus is the backend root health response.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
