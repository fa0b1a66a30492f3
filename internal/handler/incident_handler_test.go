package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/middleware"
	"github.com/edusafe-mx/plantel-api/internal/models"
	"github.com/edusafe-mx/plantel-api/internal/service"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
)

type wizardServiceMock struct {
	analyzeResp *dto.AnalyzeIncidentResponse
	analyzeErr  error
	saved       *models.Incident
}

func (m *wizardServiceMock) Analyze(ctx context.Context, req dto.AnalyzeIncidentRequest, actor *models.JWTClaims) (*dto.AnalyzeIncidentResponse, error) {
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	return m.analyzeResp, nil
}

func (m *wizardServiceMock) Save(ctx context.Context, req dto.CreateIncidentRequest, actor *models.JWTClaims) (*models.Incident, error) {
	m.saved = &models.Incident{ID: "inc-1", PlantelID: req.PlantelID, Status: models.IncidentStatusGenerated}
	return m.saved, nil
}

type incidentServiceMock struct {
	incident  *models.Incident
	uploadErr error
	upload    service.SignedUpload
}

func (m *incidentServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Incident, error) {
	return m.incident, nil
}

func (m *incidentServiceMock) List(ctx context.Context, query dto.IncidentQuery, actor *models.JWTClaims) ([]models.Incident, error) {
	return []models.Incident{*m.incident}, nil
}

func (m *incidentServiceMock) UpdateActa(ctx context.Context, id, content string, actor *models.JWTClaims) (*models.Incident, error) {
	m.incident.ActaContent = content
	return m.incident, nil
}

func (m *incidentServiceMock) ToggleAction(ctx context.Context, id, actionID string, done bool, actor *models.JWTClaims) (*models.Incident, error) {
	return m.incident, nil
}

func (m *incidentServiceMock) Print(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, *models.Incident, error) {
	return []byte("%PDF-1.4"), m.incident, nil
}

func (m *incidentServiceMock) UploadSigned(ctx context.Context, id string, upload service.SignedUpload, actor *models.JWTClaims) (*models.Incident, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.upload = upload
	return m.incident, nil
}

func (m *incidentServiceMock) Close(ctx context.Context, id string, actor *models.JWTClaims) (*models.Incident, error) {
	return m.incident, nil
}

func (m *incidentServiceMock) SignedDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (string, time.Time, error) {
	return "/api/v1/incidents/inc-1/signed-acta?token=abc", time.Now().Add(time.Hour), nil
}

func (m *incidentServiceMock) Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*service.ActaDownload, error) {
	return nil, appErrors.ErrNotFound
}

func testIncident() *models.Incident {
	return &models.Incident{
		ID:        "inc-1",
		PlantelID: "plantel-1",
		StudentID: "alumno-1",
		Status:    models.IncidentStatusOpened,
		RiskLevel: models.RiskMedium,
		Type:      models.IncidentTypeBullying,
	}
}

func testContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "director-1", Role: models.RoleDirector, PlantelID: "plantel-1"})
	return c, w
}

func TestIncidentHandlerAnalyze(t *testing.T) {
	wizard := &wizardServiceMock{analyzeResp: &dto.AnalyzeIncidentResponse{
		RiskLevel: models.RiskHigh,
		Escalated: true,
	}}
	handler := NewIncidentHandler(wizard, &incidentServiceMock{incident: testIncident()})

	body, _ := json.Marshal(dto.AnalyzeIncidentRequest{
		PlantelID: "plantel-1",
		StudentID: "alumno-1",
		Narrative: "durante el receso un alumno fue intimidado repetidamente",
	})
	c, w := testContext(t, http.MethodPost, "/incidents/analyze", body)
	handler.Analyze(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"escalated":true`)
}

func TestIncidentHandlerAnalyzeClassifierDown(t *testing.T) {
	wizard := &wizardServiceMock{analyzeErr: appErrors.ErrClassificationFailed}
	handler := NewIncidentHandler(wizard, &incidentServiceMock{incident: testIncident()})

	body, _ := json.Marshal(dto.AnalyzeIncidentRequest{PlantelID: "plantel-1", StudentID: "alumno-1", Narrative: "una descripcion suficientemente larga"})
	c, w := testContext(t, http.MethodPost, "/incidents/analyze", body)
	handler.Analyze(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), "CLASSIFICATION_FAILED")
}

func TestIncidentHandlerCreateInvalidBody(t *testing.T) {
	handler := NewIncidentHandler(&wizardServiceMock{}, &incidentServiceMock{incident: testIncident()})
	c, w := testContext(t, http.MethodPost, "/incidents", []byte(`invalid`))
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIncidentHandlerCreate(t *testing.T) {
	wizard := &wizardServiceMock{}
	handler := NewIncidentHandler(wizard, &incidentServiceMock{incident: testIncident()})

	body, _ := json.Marshal(dto.CreateIncidentRequest{
		PlantelID: "plantel-1",
		StudentID: "alumno-1",
		Narrative: "durante el receso un alumno fue intimidado repetidamente",
		RiskLevel: models.RiskMedium,
	})
	c, w := testContext(t, http.MethodPost, "/incidents", body)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, wizard.saved)
}

func TestIncidentHandlerPrintStreamsPDF(t *testing.T) {
	handler := NewIncidentHandler(&wizardServiceMock{}, &incidentServiceMock{incident: testIncident()})
	c, w := testContext(t, http.MethodPost, "/incidents/inc-1/print", nil)
	c.Params = gin.Params{{Key: "id", Value: "inc-1"}}
	handler.Print(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Equal(t, "abierta", w.Header().Get("X-Incident-Status"))
}

func TestIncidentHandlerUploadSigned(t *testing.T) {
	mock := &incidentServiceMock{incident: testIncident()}
	handler := NewIncidentHandler(&wizardServiceMock{}, mock)

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", "acta-firmada.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 firmada"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/incidents/inc-1/signed-acta", buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "director-1", Role: models.RoleDirector, PlantelID: "plantel-1"})

	handler.UploadSigned(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "acta-firmada.pdf", mock.upload.Filename)
	require.NotEmpty(t, mock.upload.Content)
}

func TestIncidentHandlerUploadSignedMissingFile(t *testing.T) {
	handler := NewIncidentHandler(&wizardServiceMock{}, &incidentServiceMock{incident: testIncident()})
	c, w := testContext(t, http.MethodPost, "/incidents/inc-1/signed-acta", nil)
	c.Params = gin.Params{{Key: "id", Value: "inc-1"}}
	handler.UploadSigned(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIncidentHandlerUploadSignedRejected(t *testing.T) {
	mock := &incidentServiceMock{incident: testIncident(), uploadErr: appErrors.ErrFileTooLarge}
	handler := NewIncidentHandler(&wizardServiceMock{}, mock)

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, _ := writer.CreateFormFile("file", "enorme.pdf")
	part.Write([]byte("%PDF-1.4")) //nolint:errcheck
	writer.Close()                 //nolint:errcheck

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/incidents/inc-1/signed-acta", buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "director-1", Role: models.RoleDirector})

	handler.UploadSigned(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "FILE_TOO_LARGE")
}

func TestIncidentHandlerListUnauthorized(t *testing.T) {
	handler := NewIncidentHandler(&wizardServiceMock{}, &incidentServiceMock{incident: testIncident()})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/incidents", nil)
	c.Request = req
	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
