package dto

import "github.com/edusafe-mx/plantel-api/internal/models"

// ReviewSubmissionRequest captures the director decision on a submission.
type ReviewSubmissionRequest struct {
	Decision models.ReviewDecision `json:"decision" binding:"required,reviewdecision"`
	Comments string                `json:"comments"`
}

// SubmissionQuery mirrors supported listing filters.
type SubmissionQuery struct {
	PlanID    string
	TeacherID string
	Status    []models.SubmissionStatus
	Limit     int
	Offset    int
}
