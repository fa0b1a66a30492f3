package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/models"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
	"github.com/edusafe-mx/plantel-api/pkg/storage"
)

type incidentStoreStub struct {
	incidents   map[string]*models.Incident
	transitions []string
}

func newIncidentStoreStub() *incidentStoreStub {
	return &incidentStoreStub{incidents: make(map[string]*models.Incident)}
}

func (s *incidentStoreStub) Create(ctx context.Context, incident *models.Incident) error {
	if incident.ID == "" {
		incident.ID = fmt.Sprintf("inc-%d", len(s.incidents)+1)
	}
	incident.CreatedAt = time.Now().UTC()
	copy := *incident
	s.incidents[incident.ID] = &copy
	return nil
}

func (s *incidentStoreStub) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	if incident, ok := s.incidents[id]; ok {
		copy := *incident
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *incidentStoreStub) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, error) {
	result := make([]models.Incident, 0, len(s.incidents))
	for _, incident := range s.incidents {
		result = append(result, *incident)
	}
	return result, nil
}

func (s *incidentStoreStub) UpdateActa(ctx context.Context, id, content string) error {
	incident, ok := s.incidents[id]
	if !ok || incident.Status == models.IncidentStatusClosed {
		return sql.ErrNoRows
	}
	incident.ActaContent = content
	return nil
}

func (s *incidentStoreStub) UpdateProtocol(ctx context.Context, id string, protocol models.ProtocolCheck) error {
	incident, ok := s.incidents[id]
	if !ok || incident.Status == models.IncidentStatusClosed {
		return sql.ErrNoRows
	}
	incident.Protocol = protocol
	return nil
}

func (s *incidentStoreStub) Transition(ctx context.Context, id string, from, to models.IncidentStatus, signedURL *string) error {
	incident, ok := s.incidents[id]
	if !ok || incident.Status != from {
		return sql.ErrNoRows
	}
	incident.Status = to
	if signedURL != nil {
		incident.SignedActaURL = signedURL
	}
	s.transitions = append(s.transitions, fmt.Sprintf("%s->%s", from, to))
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditStub) actions() []string {
	actions := make([]string, 0, len(a.logs))
	for _, log := range a.logs {
		actions = append(actions, log.Action)
	}
	return actions
}

type rendererStub struct{}

func (rendererStub) RenderActa(incident *models.Incident) ([]byte, error) {
	return []byte("%PDF-1.4 acta " + incident.ID), nil
}

type escalationStub struct {
	escalated []string
}

func (e *escalationStub) NotifyEscalation(ctx context.Context, incident *models.Incident) {
	e.escalated = append(e.escalated, incident.ID)
}

func newIncidentServiceForTest(t *testing.T, store *incidentStoreStub, audit *auditStub, notifier *escalationStub) *IncidentService {
	t.Helper()
	actaStorage, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewIncidentService(store, audit, actaStorage, signer, rendererStub{}, notifier, nil, nil, nil, IncidentServiceConfig{})
}

func directorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "director-1", Role: models.RoleDirector, PlantelID: "plantel-1"}
}

func validCreateRequest() dto.CreateIncidentRequest {
	return dto.CreateIncidentRequest{
		PlantelID:     "plantel-1",
		StudentID:     "alumno-1",
		Narrative:     "durante el receso un alumno fue intimidado repetidamente por otro",
		RiskLevel:     models.RiskMedium,
		SuggestedType: "bullying",
		ActaContent:   "acta preliminar",
		UrgentActions: []string{"Notificar a los tutores", "Separar a los involucrados"},
	}
}

func TestIncidentServiceCreateStoresSuggestedType(t *testing.T) {
	store := newIncidentStoreStub()
	audit := &auditStub{}
	svc := newIncidentServiceForTest(t, store, audit, &escalationStub{})

	incident, err := svc.Create(context.Background(), validCreateRequest(), directorClaims())
	require.NoError(t, err)
	require.Equal(t, models.IncidentTypeBullying, incident.Type)
	require.Equal(t, models.IncidentStatusGenerated, incident.Status)
	require.Len(t, incident.Protocol.Acciones, 2)
	require.Equal(t, "accion-01", incident.Protocol.Acciones[0].ID)
	require.NotContains(t, audit.actions(), models.AuditActionIncidentTypeCoerce)
}

func TestIncidentServiceCreateCoercesUnknownType(t *testing.T) {
	store := newIncidentStoreStub()
	audit := &auditStub{}
	svc := newIncidentServiceForTest(t, store, audit, &escalationStub{})

	req := validCreateRequest()
	req.SuggestedType = "ciberacoso"
	incident, err := svc.Create(context.Background(), req, directorClaims())
	require.NoError(t, err)
	require.Equal(t, models.IncidentTypeOther, incident.Type)
	require.Contains(t, audit.actions(), models.AuditActionIncidentTypeCoerce)
}

func TestIncidentServiceCreateFallsBackToPreselection(t *testing.T) {
	store := newIncidentStoreStub()
	audit := &auditStub{}
	svc := newIncidentServiceForTest(t, store, audit, &escalationStub{})

	req := validCreateRequest()
	req.SuggestedType = "ciberacoso"
	req.PreselectedType = "violencia_fisica"
	incident, err := svc.Create(context.Background(), req, directorClaims())
	require.NoError(t, err)
	require.Equal(t, models.IncidentTypeViolence, incident.Type)
	require.Contains(t, audit.actions(), models.AuditActionIncidentTypeCoerce)
}

func TestIncidentServiceCreateRequiresEscalationAck(t *testing.T) {
	store := newIncidentStoreStub()
	notifier := &escalationStub{}
	svc := newIncidentServiceForTest(t, store, &auditStub{}, notifier)

	req := validCreateRequest()
	req.RiskLevel = models.RiskImminent
	_, err := svc.Create(context.Background(), req, directorClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Empty(t, notifier.escalated)

	req.AcknowledgeEscalation = true
	incident, err := svc.Create(context.Background(), req, directorClaims())
	require.NoError(t, err)
	require.True(t, incident.Escalated())
	require.Equal(t, []string{incident.ID}, notifier.escalated)
}

func TestIncidentServicePrintOpensOnce(t *testing.T) {
	store := newIncidentStoreStub()
	svc := newIncidentServiceForTest(t, store, &auditStub{}, &escalationStub{})

	incident, err := svc.Create(context.Background(), validCreateRequest(), directorClaims())
	require.NoError(t, err)

	pdf, printed, err := svc.Print(context.Background(), incident.ID, directorClaims())
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	require.Equal(t, models.IncidentStatusOpened, printed.Status)
	require.Equal(t, []string{"generada->abierta"}, store.transitions)

	pdf, printed, err = svc.Print(context.Background(), incident.ID, directorClaims())
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	require.Equal(t, models.IncidentStatusOpened, printed.Status)
	require.Equal(t, []string{"generada->abierta"}, store.transitions)
}

func TestIncidentServiceUploadSignedValidations(t *testing.T) {
	store := newIncidentStoreStub()
	svc := newIncidentServiceForTest(t, store, &auditStub{}, &escalationStub{})

	incident, err := svc.Create(context.Background(), validCreateRequest(), directorClaims())
	require.NoError(t, err)

	upload := SignedUpload{
		Filename:  "acta.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 1024,
		Content:   []byte("%PDF-1.4 firmada"),
	}

	wrongType := upload
	wrongType.MimeType = "image/png"
	_, err = svc.UploadSigned(context.Background(), incident.ID, wrongType, directorClaims())
	require.Equal(t, appErrors.ErrInvalidFileType.Code, appErrors.FromError(err).Code)

	tooLarge := upload
	tooLarge.SizeBytes = 12 * 1024 * 1024
	_, err = svc.UploadSigned(context.Background(), incident.ID, tooLarge, directorClaims())
	require.Equal(t, appErrors.ErrFileTooLarge.Code, appErrors.FromError(err).Code)

	_, err = svc.UploadSigned(context.Background(), incident.ID, upload, directorClaims())
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Print(context.Background(), incident.ID, directorClaims())
	require.NoError(t, err)

	signed, err := svc.UploadSigned(context.Background(), incident.ID, upload, directorClaims())
	require.NoError(t, err)
	require.Equal(t, models.IncidentStatusSigned, signed.Status)
	require.NotNil(t, signed.SignedActaURL)
}

func TestIncidentServiceCloseRequiresSigned(t *testing.T) {
	store := newIncidentStoreStub()
	svc := newIncidentServiceForTest(t, store, &auditStub{}, &escalationStub{})

	incident, err := svc.Create(context.Background(), validCreateRequest(), directorClaims())
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), incident.ID, directorClaims())
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Print(context.Background(), incident.ID, directorClaims())
	require.NoError(t, err)
	upload := SignedUpload{Filename: "acta.pdf", MimeType: "application/pdf", SizeBytes: 64, Content: []byte("%PDF-1.4")}
	_, err = svc.UploadSigned(context.Background(), incident.ID, upload, directorClaims())
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), incident.ID, directorClaims())
	require.NoError(t, err)
	require.Equal(t, models.IncidentStatusClosed, closed.Status)
}

func TestIncidentServiceUpdateActaRejectsClosed(t *testing.T) {
	store := newIncidentStoreStub()
	svc := newIncidentServiceForTest(t, store, &auditStub{}, &escalationStub{})

	incident, err := svc.Create(context.Background(), validCreateRequest(), directorClaims())
	require.NoError(t, err)
	store.incidents[incident.ID].Status = models.IncidentStatusClosed

	_, err = svc.UpdateActa(context.Background(), incident.ID, "acta corregida", directorClaims())
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestIncidentServiceDownloadWithToken(t *testing.T) {
	store := newIncidentStoreStub()
	svc := newIncidentServiceForTest(t, store, &auditStub{}, &escalationStub{})

	incident, err := svc.Create(context.Background(), validCreateRequest(), directorClaims())
	require.NoError(t, err)
	_, _, err = svc.Print(context.Background(), incident.ID, directorClaims())
	require.NoError(t, err)
	upload := SignedUpload{Filename: "acta.pdf", MimeType: "application/pdf", SizeBytes: 64, Content: []byte("%PDF-1.4 firmada")}
	_, err = svc.UploadSigned(context.Background(), incident.ID, upload, directorClaims())
	require.NoError(t, err)

	url, expiresAt, err := svc.SignedDownloadURL(context.Background(), incident.ID, directorClaims())
	require.NoError(t, err)
	require.Contains(t, url, "token=")
	require.True(t, expiresAt.After(time.Now()))

	token := url[strings.Index(url, "token=")+len("token="):]
	result, err := svc.Download(context.Background(), incident.ID, token, nil)
	require.NoError(t, err)
	defer result.File.Close()
	require.Greater(t, result.SizeBytes, int64(0))

	_, err = svc.Download(context.Background(), incident.ID, "inc-1.123.bad.signature", nil)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
