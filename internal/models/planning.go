package models

import "time"

// SubmissionStatus captures the review workflow states for a lesson plan.
type SubmissionStatus string

const (
	SubmissionStatusPending          SubmissionStatus = "pending"
	SubmissionStatusApproved         SubmissionStatus = "approved"
	SubmissionStatusChangesRequested SubmissionStatus = "changes_requested"
)

// ReviewDecision is a director's verdict on a pending submission.
type ReviewDecision string

const (
	ReviewDecisionApprove        ReviewDecision = "approve"
	ReviewDecisionRequestChanges ReviewDecision = "request_changes"
)

// PlanningSubmission is one teacher submission of a lesson plan for review.
// Submissions are append-only: once a record leaves pending it is never mutated
// again; a resubmission creates a fresh row referencing the same plan.
type PlanningSubmission struct {
	ID             string           `db:"id" json:"id"`
	PlanID         string           `db:"plan_id" json:"planId"`
	TeacherID      string           `db:"teacher_id" json:"teacherId"`
	Status         SubmissionStatus `db:"status" json:"status"`
	ReviewComments *string          `db:"review_comments" json:"reviewComments,omitempty"`
	ReviewerID     *string          `db:"reviewer_id" json:"reviewerId,omitempty"`
	SubmittedAt    time.Time        `db:"submitted_at" json:"submittedAt"`
	ReviewedAt     *time.Time       `db:"reviewed_at" json:"reviewedAt,omitempty"`
}

// SubmissionFilter constrains listing queries.
type SubmissionFilter struct {
	PlanID    string
	TeacherID string
	Status    []SubmissionStatus
	Limit     int
	Offset    int
}
