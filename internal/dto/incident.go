package dto

import "github.com/edusafe-mx/plantel-api/internal/models"

// AnalyzeIncidentRequest is the capture-step payload sent for AI analysis.
type AnalyzeIncidentRequest struct {
	PlantelID string `json:"plantelId" binding:"required"`
	StudentID string `json:"studentId"`
	Narrative string `json:"narrative"`
	// PreselectedType is the staff member's manual category choice, used as a
	// fallback when the AI suggestion falls outside the canonical set.
	PreselectedType string `json:"preselectedType,omitempty"`
}

// AnalyzeIncidentResponse carries the classification back to the review step.
// Nothing is persisted until the explicit save.
type AnalyzeIncidentResponse struct {
	RiskLevel     models.RiskLevel `json:"riskLevel"`
	SuggestedType string           `json:"suggestedType,omitempty"`
	UrgentActions []string         `json:"urgentActions"`
	ActaDraft     string           `json:"actaDraft"`
	LegalBasis    string           `json:"legalBasis"`
	Escalated     bool             `json:"escalated"`
}

// CreateIncidentRequest persists the reviewed wizard output as a new incident.
type CreateIncidentRequest struct {
	PlantelID       string           `json:"plantelId" binding:"required"`
	StudentID       string           `json:"studentId" binding:"required"`
	Narrative       string           `json:"narrative" binding:"required"`
	RiskLevel       models.RiskLevel `json:"riskLevel" binding:"required,risklevel"`
	SuggestedType   string           `json:"suggestedType"`
	PreselectedType string           `json:"preselectedType"`
	ActaContent     string           `json:"actaContent"`
	UrgentActions   []string         `json:"urgentActions"`
	Completed       map[string]bool  `json:"completed"`
	// AcknowledgeEscalation must be set when the risk level is alto/inminente.
	AcknowledgeEscalation bool `json:"acknowledgeEscalation"`
}

// UpdateActaRequest edits the acta de hechos draft.
type UpdateActaRequest struct {
	Content string `json:"content" binding:"required"`
}

// ToggleActionRequest marks a protocol action complete or incomplete.
type ToggleActionRequest struct {
	Done bool `json:"done"`
}

// IncidentQuery mirrors supported listing filters.
type IncidentQuery struct {
	PlantelID string
	StudentID string
	Status    []models.IncidentStatus
	Limit     int
	Offset    int
}
