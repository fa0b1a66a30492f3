package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/models"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
	"github.com/edusafe-mx/plantel-api/pkg/response"
)

type planningService interface {
	Submit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.PlanningSubmission, error)
	Resubmit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.PlanningSubmission, error)
	Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, reviewer *models.JWTClaims) (*models.PlanningSubmission, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PlanningSubmission, error)
	List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.PlanningSubmission, error)
}

// PlanningHandler exposes REST endpoints for planning submission review.
type PlanningHandler struct {
	service planningService
}

// NewPlanningHandler constructs the handler.
func NewPlanningHandler(service planningService) *PlanningHandler {
	return &PlanningHandler{service: service}
}

// Submit godoc
// @Summary Submit a plan for review
// @Tags Planning
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 201 {object} response.Envelope
// @Router /plans/{planId}/submissions [post]
func (h *PlanningHandler) Submit(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "planning service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.service.Submit(c.Request.Context(), c.Param("planId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, submission, nil)
}

// Resubmit godoc
// @Summary Resubmit a plan after changes were requested
// @Tags Planning
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 201 {object} response.Envelope
// @Router /plans/{planId}/resubmit [post]
func (h *PlanningHandler) Resubmit(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "planning service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.service.Resubmit(c.Request.Context(), c.Param("planId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, submission, nil)
}

// Review godoc
// @Summary Review a planning submission
// @Tags Planning
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ReviewSubmissionRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/review [post]
func (h *PlanningHandler) Review(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "planning service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	submission, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Get godoc
// @Summary Get submission detail
// @Tags Planning
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *PlanningHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "planning service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// List godoc
// @Summary List planning submissions
// @Tags Planning
// @Produce json
// @Param planId query string false "Plan filter"
// @Param teacherId query string false "Teacher filter"
// @Param status query string false "Comma separated statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *PlanningHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "planning service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.SubmissionQuery{
		PlanID:    strings.TrimSpace(c.Query("planId")),
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		Limit:     parseIntQuery(c, "limit"),
		Offset:    parseIntQuery(c, "offset"),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.SubmissionStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.SubmissionStatus(part))
		}
		query.Status = statuses
	}
	submissions, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}
