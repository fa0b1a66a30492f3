package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/models"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
)

type incidentStore interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id string) (*models.Incident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, error)
	UpdateActa(ctx context.Context, id, content string) error
	UpdateProtocol(ctx context.Context, id string, protocol models.ProtocolCheck) error
	Transition(ctx context.Context, id string, from, to models.IncidentStatus, signedURL *string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type actaFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type actaSignedURLSigner interface {
	Generate(incidentID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (incidentID, relPath string, expiresAt time.Time, err error)
}

type actaRenderer interface {
	RenderActa(incident *models.Incident) ([]byte, error)
}

type escalationNotifier interface {
	NotifyEscalation(ctx context.Context, incident *models.Incident)
}

// SignedUpload carries the externally-signed document bytes and metadata.
type SignedUpload struct {
	Filename  string
	MimeType  string
	SizeBytes int64
	Content   []byte
}

// ActaDownload bundles a stored signed acta for streaming.
type ActaDownload struct {
	File      *os.File
	Filename  string
	SizeBytes int64
}

// IncidentServiceConfig holds validation parameters.
type IncidentServiceConfig struct {
	MaxFileSize int64
	APIPrefix   string
}

// IncidentService owns the incident aggregate: creation from the wizard,
// acta edits, the print and upload transitions, and closure.
type IncidentService struct {
	repo     incidentStore
	audit    auditLogger
	storage  actaFileStorage
	signer   actaSignedURLSigner
	renderer actaRenderer
	notifier escalationNotifier
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      IncidentServiceConfig
}

// NewIncidentService constructs the service with defaults.
func NewIncidentService(repo incidentStore, audit auditLogger, storage actaFileStorage, signer actaSignedURLSigner, renderer actaRenderer, notifier escalationNotifier, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg IncidentServiceConfig) *IncidentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &IncidentService{
		repo:     repo,
		audit:    audit,
		storage:  storage,
		signer:   signer,
		renderer: renderer,
		notifier: notifier,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Create persists the reviewed wizard output as a new incident in the
// generada state. The stored incident type is resolved with a fixed
// precedence: valid AI suggestion, then valid staff preselection, then otro.
func (s *IncidentService) Create(ctx context.Context, req dto.CreateIncidentRequest, actor *models.JWTClaims) (*models.Incident, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if len(strings.TrimSpace(req.Narrative)) <= 20 {
		return nil, appErrors.ErrNarrativeTooShort
	}
	if strings.TrimSpace(req.StudentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	risk, err := models.ParseRiskLevel(string(req.RiskLevel))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown risk level")
	}
	if risk.Escalated() && !req.AcknowledgeEscalation {
		return nil, appErrors.Clone(appErrors.ErrValidation, "high-risk incidents require explicit acknowledgment before saving")
	}

	incidentType, rejected := s.resolveType(req.SuggestedType, req.PreselectedType)

	incident := &models.Incident{
		PlantelID:   req.PlantelID,
		CreatedBy:   actor.UserID,
		StudentID:   req.StudentID,
		Narrative:   req.Narrative,
		Type:        incidentType,
		RiskLevel:   risk,
		ActaContent: req.ActaContent,
		Protocol:    buildProtocol(req.UrgentActions, req.Completed),
		Status:      models.IncidentStatusGenerated,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident")
	}

	s.emitAudit(ctx, actor, &models.AuditLog{
		Action:     models.AuditActionIncidentCreate,
		Resource:   "incident",
		ResourceID: &incident.ID,
		NewValues:  []byte(fmt.Sprintf(`{"tipo":%q,"nivel_riesgo":%q}`, incident.Type, incident.RiskLevel)),
	})
	if rejected != "" {
		// Rejected classifier labels are kept for offline triage.
		s.logger.Warn("incident type outside canonical set",
			zap.String("incident_id", incident.ID),
			zap.String("rejected", rejected),
			zap.String("stored", string(incident.Type)))
		s.emitAudit(ctx, actor, &models.AuditLog{
			Action:     models.AuditActionIncidentTypeCoerce,
			Resource:   "incident",
			ResourceID: &incident.ID,
			OldValues:  []byte(fmt.Sprintf(`{"tipo_rechazado":%q}`, rejected)),
			NewValues:  []byte(fmt.Sprintf(`{"tipo":%q}`, incident.Type)),
		})
		s.metrics.RecordTypeCoercion()
	}
	s.metrics.RecordIncidentCreated(incident.RiskLevel)
	if incident.Escalated() && s.notifier != nil {
		s.notifier.NotifyEscalation(ctx, incident)
	}
	s.invalidateListCache(ctx)
	return incident, nil
}

// Get returns an incident, scoped to the actor's plantel for non-admin roles.
func (s *IncidentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Incident, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	if !actorCanAccessPlantel(actor, incident.PlantelID) {
		return nil, appErrors.ErrForbidden
	}
	return incident, nil
}

// List returns incidents matching the query. Non-admin actors are always
// scoped to their own plantel.
func (s *IncidentService) List(ctx context.Context, query dto.IncidentQuery, actor *models.JWTClaims) ([]models.Incident, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.IncidentFilter{
		PlantelID: query.PlantelID,
		StudentID: query.StudentID,
		Status:    query.Status,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		filter.PlantelID = actor.PlantelID
	}

	cacheKey := incidentListCacheKey(filter)
	var cached []models.Incident
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	incidents, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	_ = s.cache.Set(ctx, cacheKey, incidents, 0)
	return incidents, nil
}

// UpdateActa edits the acta de hechos draft. Permitted in every non-closed
// state; the edit never changes the incident status.
func (s *IncidentService) UpdateActa(ctx context.Context, id, content string, actor *models.JWTClaims) (*models.Incident, error) {
	incident, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !incident.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "closed incidents cannot be edited")
	}
	if err := s.repo.UpdateActa(ctx, id, content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "incident was closed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update acta")
	}
	s.emitAudit(ctx, actor, &models.AuditLog{
		Action:     models.AuditActionIncidentDraftEdit,
		Resource:   "incident",
		ResourceID: &incident.ID,
		OldValues:  []byte(fmt.Sprintf(`{"acta":%q}`, truncate(incident.ActaContent, 512))),
		NewValues:  []byte(fmt.Sprintf(`{"acta":%q}`, truncate(content, 512))),
	})
	incident.ActaContent = content
	s.invalidateListCache(ctx)
	return incident, nil
}

// ToggleAction marks one protocol action complete or incomplete.
func (s *IncidentService) ToggleAction(ctx context.Context, id, actionID string, done bool, actor *models.JWTClaims) (*models.Incident, error) {
	incident, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !incident.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "closed incidents cannot be edited")
	}
	known := false
	for _, action := range incident.Protocol.Acciones {
		if action.ID == actionID {
			known = true
			break
		}
	}
	if !known {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown protocol action")
	}
	if incident.Protocol.Completadas == nil {
		incident.Protocol.Completadas = map[string]bool{}
	}
	incident.Protocol.Completadas[actionID] = done
	if err := s.repo.UpdateProtocol(ctx, id, incident.Protocol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "incident was closed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update protocol")
	}
	return incident, nil
}

// Print renders the official acta PDF. The first print of a generada incident
// stamps it abierta; printing again never re-fires the transition.
func (s *IncidentService) Print(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, *models.Incident, error) {
	incident, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, nil, err
	}
	pdfBytes, err := s.renderer.RenderActa(incident)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render acta")
	}
	if incident.Status == models.IncidentStatusGenerated {
		err := s.repo.Transition(ctx, id, models.IncidentStatusGenerated, models.IncidentStatusOpened, nil)
		switch {
		case err == nil:
			incident.Status = models.IncidentStatusOpened
			s.recordTransition(ctx, actor, incident, models.IncidentStatusGenerated, models.IncidentStatusOpened)
		case errors.Is(err, sql.ErrNoRows):
			// Lost the race to another print; the incident already advanced.
		default:
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open incident")
		}
	}
	return pdfBytes, incident, nil
}

// UploadSigned validates and stores the externally-signed acta, then moves the
// incident from abierta to firmada as a single unit. If the transition fails
// after a successful store, the object is removed on a best-effort basis; the
// upload is never retried here.
func (s *IncidentService) UploadSigned(ctx context.Context, id string, upload SignedUpload, actor *models.JWTClaims) (*models.Incident, error) {
	incident, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(upload.MimeType, "application/pdf") {
		s.metrics.RecordUploadRejected("invalid_type")
		return nil, appErrors.ErrInvalidFileType
	}
	if upload.SizeBytes > s.cfg.MaxFileSize {
		s.metrics.RecordUploadRejected("file_too_large")
		return nil, appErrors.ErrFileTooLarge
	}
	if len(upload.Content) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if incident.Status != models.IncidentStatusOpened {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "signed documents can only be attached to open incidents")
	}

	path := signedActaPath(incident)
	if _, err := s.storage.Save(path, upload.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store signed document")
	}
	url := fmt.Sprintf("%s/incidents/%s/signed-acta", s.cfg.APIPrefix, incident.ID)
	if err := s.repo.Transition(ctx, id, models.IncidentStatusOpened, models.IncidentStatusSigned, &url); err != nil {
		s.logger.Warn("signed document stored but transition failed, removing object",
			zap.String("incident_id", id), zap.String("path", path), zap.Error(err))
		if delErr := s.storage.Delete(path); delErr != nil {
			s.logger.Warn("failed to remove orphaned signed document",
				zap.String("path", path), zap.Error(delErr))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "incident state changed during upload")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark incident as signed")
	}
	incident.Status = models.IncidentStatusSigned
	incident.SignedActaURL = &url
	s.recordTransition(ctx, actor, incident, models.IncidentStatusOpened, models.IncidentStatusSigned)
	s.invalidateListCache(ctx)
	return incident, nil
}

// Close terminates a signed incident. Closed is terminal.
func (s *IncidentService) Close(ctx context.Context, id string, actor *models.JWTClaims) (*models.Incident, error) {
	incident, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Transition(ctx, id, models.IncidentStatusSigned, models.IncidentStatusClosed, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only signed incidents can be closed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close incident")
	}
	incident.Status = models.IncidentStatusClosed
	s.recordTransition(ctx, actor, incident, models.IncidentStatusSigned, models.IncidentStatusClosed)
	s.invalidateListCache(ctx)
	return incident, nil
}

// SignedDownloadURL issues a short-lived tokenized URL for the signed acta.
func (s *IncidentService) SignedDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (string, time.Time, error) {
	incident, err := s.Get(ctx, id, actor)
	if err != nil {
		return "", time.Time{}, err
	}
	if incident.SignedActaURL == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "incident has no signed document")
	}
	token, expiresAt, err := s.signer.Generate(incident.ID, signedActaPath(incident))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
	}
	url := fmt.Sprintf("%s/incidents/%s/signed-acta?token=%s", s.cfg.APIPrefix, incident.ID, token)
	return url, expiresAt, nil
}

// Download streams the stored signed acta. A valid token grants access without
// claims; otherwise the actor must be able to see the incident.
func (s *IncidentService) Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*ActaDownload, error) {
	var path string
	if token != "" {
		tokenID, relPath, _, err := s.signer.Parse(token, false)
		if err != nil || tokenID != id {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
		}
		path = relPath
	} else {
		incident, err := s.Get(ctx, id, actor)
		if err != nil {
			return nil, err
		}
		if incident.SignedActaURL == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident has no signed document")
		}
		path = signedActaPath(incident)
	}
	file, err := s.storage.Open(path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "signed document not found")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat signed document")
	}
	return &ActaDownload{
		File:      file,
		Filename:  fmt.Sprintf("acta-firmada-%s.pdf", id),
		SizeBytes: info.Size(),
	}, nil
}

func (s *IncidentService) resolveType(suggested, preselected string) (models.IncidentType, string) {
	rejected := ""
	if suggested != "" {
		if t, ok := models.CoerceIncidentType(suggested); ok {
			return t, ""
		}
		rejected = suggested
	}
	if preselected != "" {
		if t, ok := models.CoerceIncidentType(preselected); ok {
			return t, rejected
		}
	}
	return models.IncidentTypeOther, rejected
}

func (s *IncidentService) recordTransition(ctx context.Context, actor *models.JWTClaims, incident *models.Incident, from, to models.IncidentStatus) {
	s.metrics.RecordIncidentTransition(to)
	s.emitAudit(ctx, actor, &models.AuditLog{
		Action:     models.AuditActionIncidentTransition,
		Resource:   "incident",
		ResourceID: &incident.ID,
		OldValues:  []byte(fmt.Sprintf(`{"estado":%q}`, from)),
		NewValues:  []byte(fmt.Sprintf(`{"estado":%q}`, to)),
	})
}

func (s *IncidentService) emitAudit(ctx context.Context, actor *models.JWTClaims, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if actor != nil {
		userID := actor.UserID
		log.UserID = &userID
	}
	log.IPAddress = "system"
	log.UserAgent = "incident-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *IncidentService) invalidateListCache(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "incidents:list:*")
}

func buildProtocol(actions []string, completed map[string]bool) models.ProtocolCheck {
	protocol := models.ProtocolCheck{
		Acciones:    make([]models.ProtocolAction, 0, len(actions)),
		Completadas: map[string]bool{},
	}
	for i, descripcion := range actions {
		id := fmt.Sprintf("accion-%02d", i+1)
		protocol.Acciones = append(protocol.Acciones, models.ProtocolAction{ID: id, Descripcion: descripcion})
		if completed[id] {
			protocol.Completadas[id] = true
		}
	}
	return protocol
}

func signedActaPath(incident *models.Incident) string {
	return fmt.Sprintf("%s/acta-firmada-%s.pdf", incident.PlantelID, incident.ID)
}

func incidentListCacheKey(filter models.IncidentFilter) string {
	statuses, _ := json.Marshal(filter.Status)
	return fmt.Sprintf("incidents:list:%s:%s:%s:%d:%d", filter.PlantelID, filter.StudentID, statuses, filter.Limit, filter.Offset)
}

func actorCanAccessPlantel(actor *models.JWTClaims, plantelID string) bool {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleSuperAdmin {
		return true
	}
	return actor.PlantelID == plantelID
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
