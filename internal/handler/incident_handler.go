package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/middleware"
	"github.com/edusafe-mx/plantel-api/internal/models"
	"github.com/edusafe-mx/plantel-api/internal/service"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
	"github.com/edusafe-mx/plantel-api/pkg/response"
)

type wizardService interface {
	Analyze(ctx context.Context, req dto.AnalyzeIncidentRequest, actor *models.JWTClaims) (*dto.AnalyzeIncidentResponse, error)
	Save(ctx context.Context, req dto.CreateIncidentRequest, actor *models.JWTClaims) (*models.Incident, error)
}

type incidentService interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Incident, error)
	List(ctx context.Context, query dto.IncidentQuery, actor *models.JWTClaims) ([]models.Incident, error)
	UpdateActa(ctx context.Context, id, content string, actor *models.JWTClaims) (*models.Incident, error)
	ToggleAction(ctx context.Context, id, actionID string, done bool, actor *models.JWTClaims) (*models.Incident, error)
	Print(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, *models.Incident, error)
	UploadSigned(ctx context.Context, id string, upload service.SignedUpload, actor *models.JWTClaims) (*models.Incident, error)
	Close(ctx context.Context, id string, actor *models.JWTClaims) (*models.Incident, error)
	SignedDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (string, time.Time, error)
	Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*service.ActaDownload, error)
}

// IncidentHandler exposes REST endpoints for the incident workflow.
type IncidentHandler struct {
	wizard    wizardService
	incidents incidentService
}

// NewIncidentHandler constructs the handler.
func NewIncidentHandler(wizard wizardService, incidents incidentService) *IncidentHandler {
	return &IncidentHandler{wizard: wizard, incidents: incidents}
}

// Analyze godoc
// @Summary Classify an incident narrative
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body dto.AnalyzeIncidentRequest true "Narrative payload"
// @Success 200 {object} response.Envelope
// @Router /incidents/analyze [post]
func (h *IncidentHandler) Analyze(c *gin.Context) {
	if h.wizard == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "wizard service not configured"))
		return
	}
	var req dto.AnalyzeIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid analyze payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.wizard.Analyze(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Save a reviewed incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body dto.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	if h.wizard == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "wizard service not configured"))
		return
	}
	var req dto.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid incident payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	incident, err := h.wizard.Save(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, incident, nil)
}

// List godoc
// @Summary List incidents
// @Tags Incidents
// @Produce json
// @Param plantelId query string false "Plantel filter"
// @Param studentId query string false "Student filter"
// @Param status query string false "Comma separated statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.IncidentQuery{
		PlantelID: strings.TrimSpace(c.Query("plantelId")),
		StudentID: strings.TrimSpace(c.Query("studentId")),
		Limit:     parseIntQuery(c, "limit"),
		Offset:    parseIntQuery(c, "offset"),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.IncidentStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.IncidentStatus(part))
		}
		query.Status = statuses
	}
	incidents, err := h.incidents.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, false)
	meta := middleware.ExtractMeta(c)
	response.JSON(c, http.StatusOK, incidents, nil, meta)
}

// Get godoc
// @Summary Get incident detail
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	incident, err := h.incidents.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// UpdateActa godoc
// @Summary Edit the acta de hechos draft
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param payload body dto.UpdateActaRequest true "Acta content"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/acta [put]
func (h *IncidentHandler) UpdateActa(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateActaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid acta payload"))
		return
	}
	incident, err := h.incidents.UpdateActa(c.Request.Context(), c.Param("id"), req.Content, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// ToggleAction godoc
// @Summary Toggle a protocol checklist action
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param actionId path string true "Action ID"
// @Param payload body dto.ToggleActionRequest true "Completion flag"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/protocol/{actionId} [put]
func (h *IncidentHandler) ToggleAction(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ToggleActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid toggle payload"))
		return
	}
	incident, err := h.incidents.ToggleAction(c.Request.Context(), c.Param("id"), c.Param("actionId"), req.Done, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// Print godoc
// @Summary Print the official acta PDF
// @Tags Incidents
// @Produce application/pdf
// @Param id path string true "Incident ID"
// @Success 200 {file} binary
// @Router /incidents/{id}/print [post]
func (h *IncidentHandler) Print(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	pdfBytes, incident, err := h.incidents.Print(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"acta-hechos-%s.pdf\"", incident.ID))
	c.Header("X-Incident-Status", string(incident.Status))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// UploadSigned godoc
// @Summary Attach the externally signed acta
// @Tags Incidents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Incident ID"
// @Param file formData file true "Signed PDF"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/signed-acta [post]
func (h *IncidentHandler) UploadSigned(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
		return
	}
	upload := service.SignedUpload{
		Filename:  fileHeader.Filename,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		SizeBytes: fileHeader.Size,
		Content:   content,
	}
	incident, err := h.incidents.UploadSigned(c.Request.Context(), c.Param("id"), upload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// Close godoc
// @Summary Close a signed incident
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/close [post]
func (h *IncidentHandler) Close(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	incident, err := h.incidents.Close(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// SignedDownloadURL godoc
// @Summary Issue a tokenized download URL for the signed acta
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id}/signed-acta/url [get]
func (h *IncidentHandler) SignedDownloadURL(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	url, expiresAt, err := h.incidents.SignedDownloadURL(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"url": url, "expiresAt": expiresAt}, nil)
}

// Download godoc
// @Summary Download the stored signed acta
// @Tags Incidents
// @Produce application/pdf
// @Param id path string true "Incident ID"
// @Param token query string false "Signed download token"
// @Success 200 {file} binary
// @Router /incidents/{id}/signed-acta [get]
func (h *IncidentHandler) Download(c *gin.Context) {
	if h.incidents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "incident service not configured"))
		return
	}
	token := c.Query("token")
	claims := claimsFromContext(c)
	if token == "" && claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.incidents.Download(c.Request.Context(), c.Param("id"), token, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.DataFromReader(http.StatusOK, result.SizeBytes, "application/pdf", result.File, nil)
}

func parseIntQuery(c *gin.Context, key string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
