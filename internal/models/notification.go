package models

import "time"

// NotificationKind distinguishes delivery templates.
type NotificationKind string

const (
	NotificationKindEscalation    NotificationKind = "INCIDENT_ESCALATION"
	NotificationKindReviewOutcome NotificationKind = "REVIEW_OUTCOME"
)

// Notification is a fire-and-forget message for the presentation surface.
// Delivery failures never affect workflow state.
type Notification struct {
	RecipientID string           `json:"recipientId"`
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	ResourceID  string           `json:"resourceId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}
