package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/edusafe-mx/plantel-api/internal/classifier"
	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/models"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
)

type riskClassifier interface {
	Classify(ctx context.Context, req classifier.Request) (*classifier.Result, error)
}

type incidentCreator interface {
	Create(ctx context.Context, req dto.CreateIncidentRequest, actor *models.JWTClaims) (*models.Incident, error)
}

// WizardService orchestrates the capture, analysis, and review steps of the
// incident wizard. It holds no state of its own: a failed analysis leaves
// nothing behind and the caller simply returns to the capture step.
type WizardService struct {
	classifier riskClassifier
	incidents  incidentCreator
	logger     *zap.Logger
}

// NewWizardService constructs the service.
func NewWizardService(classifier riskClassifier, incidents incidentCreator, logger *zap.Logger) *WizardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WizardService{classifier: classifier, incidents: incidents, logger: logger}
}

// Analyze guards the capture step and runs the AI classification. The
// classifier is never called with a narrative of 20 characters or fewer, and
// a single failed call is surfaced without retry.
func (s *WizardService) Analyze(ctx context.Context, req dto.AnalyzeIncidentRequest, actor *models.JWTClaims) (*dto.AnalyzeIncidentResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if len(strings.TrimSpace(req.Narrative)) <= 20 {
		return nil, appErrors.ErrNarrativeTooShort
	}
	if strings.TrimSpace(req.StudentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}

	result, err := s.classifier.Classify(ctx, classifier.Request{
		Descripcion: req.Narrative,
		PlantelID:   req.PlantelID,
		AlumnoID:    req.StudentID,
		UserID:      actor.UserID,
	})
	if err != nil {
		s.logger.Warn("risk classification failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrClassificationFailed.Code, appErrors.ErrClassificationFailed.Status, appErrors.ErrClassificationFailed.Message)
	}

	risk, err := models.ParseRiskLevel(result.Clasificacion)
	if err != nil {
		s.logger.Warn("classifier returned unknown risk level", zap.String("clasificacion", result.Clasificacion))
		return nil, appErrors.Clone(appErrors.ErrClassificationFailed, "classifier returned an unknown risk level")
	}

	return &dto.AnalyzeIncidentResponse{
		RiskLevel:     risk,
		SuggestedType: result.TipoIncidencia,
		UrgentActions: result.AccionesUrgentes,
		ActaDraft:     result.ActaBorrador,
		LegalBasis:    result.FundamentoLegal,
		Escalated:     risk.Escalated(),
	}, nil
}

// Save completes the review step by persisting the incident aggregate.
func (s *WizardService) Save(ctx context.Context, req dto.CreateIncidentRequest, actor *models.JWTClaims) (*models.Incident, error) {
	return s.incidents.Create(ctx, req, actor)
}
