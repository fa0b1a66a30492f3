package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/models"
	"github.com/edusafe-mx/plantel-api/internal/repository"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
)

type planningStore interface {
	Create(ctx context.Context, submission *models.PlanningSubmission) error
	GetByID(ctx context.Context, id string) (*models.PlanningSubmission, error)
	LatestByPlan(ctx context.Context, planID string) (*models.PlanningSubmission, error)
	HasPending(ctx context.Context, planID string) (bool, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.PlanningSubmission, error)
	Review(ctx context.Context, params repository.ReviewParams) error
}

type reviewNotifier interface {
	NotifyReviewOutcome(ctx context.Context, submission *models.PlanningSubmission)
}

// PlanningService owns the lesson-plan review lifecycle: teacher submission,
// director decision, and resubmission after requested changes.
type PlanningService struct {
	repo     planningStore
	audit    auditLogger
	notifier reviewNotifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewPlanningService constructs the service.
func NewPlanningService(repo planningStore, audit auditLogger, notifier reviewNotifier, metrics *MetricsService, logger *zap.Logger) *PlanningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningService{repo: repo, audit: audit, notifier: notifier, metrics: metrics, logger: logger}
}

// Submit creates a pending submission for the plan. A plan can hold at most
// one pending submission at a time.
func (s *PlanningService) Submit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.PlanningSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(planID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "planId is required")
	}
	pending, err := s.repo.HasPending(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending submissions")
	}
	if pending {
		return nil, appErrors.ErrDuplicateSubmission
	}
	submission := &models.PlanningSubmission{
		PlanID:    planID,
		TeacherID: actor.UserID,
		Status:    models.SubmissionStatusPending,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	s.emitAudit(ctx, actor, &models.AuditLog{
		Action:     models.AuditActionSubmissionCreate,
		Resource:   "plan_submission",
		ResourceID: &submission.ID,
		NewValues:  []byte(fmt.Sprintf(`{"plan_id":%q,"status":%q}`, submission.PlanID, submission.Status)),
	})
	return submission, nil
}

// Review applies the director decision. Comments are mandatory when
// requesting changes; approve never requires them. Reviewed submissions are
// immutable afterwards.
func (s *PlanningService) Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, reviewer *models.JWTClaims) (*models.PlanningSubmission, error) {
	if reviewer == nil {
		return nil, appErrors.ErrUnauthorized
	}
	var target models.SubmissionStatus
	switch req.Decision {
	case models.ReviewDecisionApprove:
		target = models.SubmissionStatusApproved
	case models.ReviewDecisionRequestChanges:
		if strings.TrimSpace(req.Comments) == "" {
			return nil, appErrors.ErrMissingComments
		}
		target = models.SubmissionStatusChangesRequested
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be approve or request_changes")
	}

	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if submission.Status != models.SubmissionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "submission already reviewed")
	}

	now := time.Now().UTC()
	params := repository.ReviewParams{
		ID:         submission.ID,
		Status:     target,
		ReviewerID: reviewer.UserID,
		ReviewedAt: now,
		Comments:   optionalString(req.Comments),
	}
	if err := s.repo.Review(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review submission")
	}
	submission.Status = target
	submission.ReviewerID = &params.ReviewerID
	submission.ReviewedAt = &now
	submission.ReviewComments = params.Comments

	s.metrics.RecordReviewDecision(req.Decision)
	s.emitAudit(ctx, reviewer, &models.AuditLog{
		Action:     models.AuditActionSubmissionReview,
		Resource:   "plan_submission",
		ResourceID: &submission.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, submission.Status)),
	})
	if s.notifier != nil {
		s.notifier.NotifyReviewOutcome(ctx, submission)
	}
	return submission, nil
}

// Resubmit creates a fresh pending submission after a changes-requested
// decision. The previous record is retained untouched as history.
func (s *PlanningService) Resubmit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.PlanningSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	latest, err := s.repo.LatestByPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "plan has never been submitted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest submission")
	}
	switch latest.Status {
	case models.SubmissionStatusPending:
		return nil, appErrors.ErrDuplicateSubmission
	case models.SubmissionStatusApproved:
		return nil, appErrors.Clone(appErrors.ErrConflict, "plan is already approved")
	}

	submission := &models.PlanningSubmission{
		PlanID:    planID,
		TeacherID: actor.UserID,
		Status:    models.SubmissionStatusPending,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resubmission")
	}
	s.emitAudit(ctx, actor, &models.AuditLog{
		Action:     models.AuditActionSubmissionCreate,
		Resource:   "plan_submission",
		ResourceID: &submission.ID,
		NewValues:  []byte(fmt.Sprintf(`{"plan_id":%q,"status":%q,"resubmission":true}`, submission.PlanID, submission.Status)),
	})
	return submission, nil
}

// Get returns a submission enforcing scope constraints.
func (s *PlanningService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PlanningSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if actor.Role == models.RoleTeacher && submission.TeacherID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return submission, nil
}

// List returns submissions visible to the actor. Teachers only see their own.
func (s *PlanningService) List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.PlanningSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.SubmissionFilter{
		PlanID:    query.PlanID,
		TeacherID: query.TeacherID,
		Status:    query.Status,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	if actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.UserID
	}
	submissions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

func (s *PlanningService) emitAudit(ctx context.Context, actor *models.JWTClaims, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if actor != nil {
		userID := actor.UserID
		log.UserID = &userID
	}
	log.IPAddress = "system"
	log.UserAgent = "planning-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
