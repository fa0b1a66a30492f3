package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusafe-mx/plantel-api/internal/models"
)

// PlanningRepository persists lesson-plan submissions. Rows are append-only:
// a submission is only ever updated once, when it leaves pending.
type PlanningRepository struct {
	db *sqlx.DB
}

// NewPlanningRepository constructs the repository.
func NewPlanningRepository(db *sqlx.DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

const submissionColumns = `id, plan_id, teacher_id, status, review_comments, reviewer_id, submitted_at, reviewed_at`

// Create inserts a new pending submission.
func (r *PlanningRepository) Create(ctx context.Context, submission *models.PlanningSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusPending
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO plan_submissions
	(id, plan_id, teacher_id, status, review_comments, reviewer_id, submitted_at, reviewed_at)
	VALUES (:id, :plan_id, :teacher_id, :status, :review_comments, :reviewer_id, :submitted_at, :reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID fetches a submission by identifier.
func (r *PlanningRepository) GetByID(ctx context.Context, id string) (*models.PlanningSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM plan_submissions WHERE id = $1`
	var submission models.PlanningSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// LatestByPlan returns the most recent submission for a plan, or nil when the
// plan has never been submitted.
func (r *PlanningRepository) LatestByPlan(ctx context.Context, planID string) (*models.PlanningSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM plan_submissions
	WHERE plan_id = $1 ORDER BY submitted_at DESC LIMIT 1`
	var submission models.PlanningSubmission
	if err := r.db.GetContext(ctx, &submission, query, planID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// HasPending reports whether a pending submission exists for the plan.
func (r *PlanningRepository) HasPending(ctx context.Context, planID string) (bool, error) {
	const query = `SELECT COUNT(1) FROM plan_submissions WHERE plan_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, planID, models.SubmissionStatusPending); err != nil {
		return false, fmt.Errorf("count pending submissions: %w", err)
	}
	return count > 0, nil
}

// List returns submissions matching the filter (newest first).
func (r *PlanningRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.PlanningSubmission, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + submissionColumns + ` FROM plan_submissions`)

	conditions := make([]string, 0, 3)
	if filter.PlanID != "" {
		args = append(args, filter.PlanID)
		conditions = append(conditions, fmt.Sprintf("plan_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var submissions []models.PlanningSubmission
	if err := r.db.SelectContext(ctx, &submissions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ReviewParams groups the columns written by a review decision.
type ReviewParams struct {
	ID         string
	Status     models.SubmissionStatus
	ReviewerID string
	ReviewedAt time.Time
	Comments   *string
}

// Review persists the director decision. The conditional on pending makes the
// update a no-op when the submission was already reviewed; zero affected rows
// surface as sql.ErrNoRows.
func (r *PlanningRepository) Review(ctx context.Context, params ReviewParams) error {
	query := fmt.Sprintf(`UPDATE plan_submissions
	SET status = :status, reviewer_id = :reviewer_id, reviewed_at = :reviewed_at, review_comments = :review_comments
	WHERE id = :id AND status = '%s'`, models.SubmissionStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              params.ID,
		"status":          params.Status,
		"reviewer_id":     params.ReviewerID,
		"reviewed_at":     params.ReviewedAt,
		"review_comments": params.Comments,
	})
	if err != nil {
		return fmt.Errorf("review submission: %w", err)
	}
	return requireRow(result)
}
