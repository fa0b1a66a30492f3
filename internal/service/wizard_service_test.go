package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edusafe-mx/plantel-api/internal/classifier"
	"github.com/edusafe-mx/plantel-api/internal/dto"
	"github.com/edusafe-mx/plantel-api/internal/models"
	appErrors "github.com/edusafe-mx/plantel-api/pkg/errors"
)

type classifierStub struct {
	result *classifier.Result
	err    error
	calls  int
}

func (c *classifierStub) Classify(ctx context.Context, req classifier.Request) (*classifier.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

type incidentCreatorStub struct {
	created *models.Incident
}

func (s *incidentCreatorStub) Create(ctx context.Context, req dto.CreateIncidentRequest, actor *models.JWTClaims) (*models.Incident, error) {
	s.created = &models.Incident{ID: "inc-1", PlantelID: req.PlantelID, StudentID: req.StudentID}
	return s.created, nil
}

func validAnalyzeRequest() dto.AnalyzeIncidentRequest {
	return dto.AnalyzeIncidentRequest{
		PlantelID: "plantel-1",
		StudentID: "alumno-1",
		Narrative: "durante el receso un alumno fue intimidado repetidamente por otro",
	}
}

func TestWizardServiceAnalyzeRejectsShortNarrative(t *testing.T) {
	stub := &classifierStub{}
	svc := NewWizardService(stub, &incidentCreatorStub{}, nil)

	req := validAnalyzeRequest()
	req.Narrative = "   breve   "
	_, err := svc.Analyze(context.Background(), req, directorClaims())
	require.Equal(t, appErrors.ErrNarrativeTooShort.Code, appErrors.FromError(err).Code)
	require.Zero(t, stub.calls)
}

func TestWizardServiceAnalyzeRequiresStudent(t *testing.T) {
	stub := &classifierStub{}
	svc := NewWizardService(stub, &incidentCreatorStub{}, nil)

	req := validAnalyzeRequest()
	req.StudentID = "  "
	_, err := svc.Analyze(context.Background(), req, directorClaims())
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Zero(t, stub.calls)
}

func TestWizardServiceAnalyzeSingleAttempt(t *testing.T) {
	stub := &classifierStub{err: errors.New("connection refused")}
	svc := NewWizardService(stub, &incidentCreatorStub{}, nil)

	_, err := svc.Analyze(context.Background(), validAnalyzeRequest(), directorClaims())
	require.Equal(t, appErrors.ErrClassificationFailed.Code, appErrors.FromError(err).Code)
	require.Equal(t, 1, stub.calls)
}

func TestWizardServiceAnalyzeRejectsUnknownRiskLevel(t *testing.T) {
	stub := &classifierStub{result: &classifier.Result{Clasificacion: "critico"}}
	svc := NewWizardService(stub, &incidentCreatorStub{}, nil)

	_, err := svc.Analyze(context.Background(), validAnalyzeRequest(), directorClaims())
	require.Equal(t, appErrors.ErrClassificationFailed.Code, appErrors.FromError(err).Code)
}

func TestWizardServiceAnalyzeEscalation(t *testing.T) {
	stub := &classifierStub{result: &classifier.Result{
		Clasificacion:    "inminente",
		TipoIncidencia:   "posesion_arma",
		AccionesUrgentes: []string{"Llamar al 911", "Aislar el area"},
		ActaBorrador:     "acta generada por el clasificador",
		FundamentoLegal:  "protocolo estatal de seguridad escolar",
	}}
	svc := NewWizardService(stub, &incidentCreatorStub{}, nil)

	result, err := svc.Analyze(context.Background(), validAnalyzeRequest(), directorClaims())
	require.NoError(t, err)
	require.Equal(t, models.RiskImminent, result.RiskLevel)
	require.True(t, result.Escalated)
	require.Equal(t, "posesion_arma", result.SuggestedType)
	require.Len(t, result.UrgentActions, 2)
}

func TestWizardServiceSaveDelegates(t *testing.T) {
	creator := &incidentCreatorStub{}
	svc := NewWizardService(&classifierStub{}, creator, nil)

	incident, err := svc.Save(context.Background(), validCreateRequest(), directorClaims())
	require.NoError(t, err)
	require.Equal(t, creator.created, incident)
}
