package model

import "time"

// Mutation status values returned by the server.
const (
	MutationSuccess = "success"
	MutationError   = "error"
)

// MutationResult is the server's reply to a mark-as-read request.
type MutationResult struct {
	// Status is "success" on success; any other value is a failure.
	Status string `json:"status"`

	// Message is an optional human-readable explanation.
	Message string `json:"message,omitempty"`
}

// OK reports whether the server accepted the mutation.
func (r MutationResult) OK() bool {
	return r.Status == MutationSuccess
}

// UnreadCount is the body of the unread-count endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}

// RecentFragment is the body of the recent-notifications endpoint. HTML is a
// pre-rendered list fragment owned by the server.
type RecentFragment struct {
	HTML string `json:"html"`
}

// ActivityKind identifies what the user did from this client.
type ActivityKind string

const (
	ActivityMarkAllRead ActivityKind = "mark_all_read"
	ActivityMarkRead    ActivityKind = "mark_read"
	ActivityReportRange ActivityKind = "report_range"
)

// Activity outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Activity is a local record of an action taken from this client. It never
// holds server notification content.
type Activity struct {
	ID        string       `json:"id" db:"id"`
	Kind      ActivityKind `json:"kind" db:"kind"`
	Target    string       `json:"target" db:"target"`
	Outcome   string       `json:"outcome" db:"outcome"`
	Message   string       `json:"message" db:"message"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
