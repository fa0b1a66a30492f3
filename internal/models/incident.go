package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RiskLevel is the AI-assigned classification of an incident narrative.
type RiskLevel string

const (
	RiskLow      RiskLevel = "bajo"
	RiskMedium   RiskLevel = "medio"
	RiskHigh     RiskLevel = "alto"
	RiskImminent RiskLevel = "inminente"
)

// ParseRiskLevel validates a raw classifier label.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	switch RiskLevel(raw) {
	case RiskLow, RiskMedium, RiskHigh, RiskImminent:
		return RiskLevel(raw), nil
	}
	return "", fmt.Errorf("unknown risk level %q", raw)
}

// Escalated reports whether the level requires explicit staff acknowledgment.
func (r RiskLevel) Escalated() bool {
	return r == RiskHigh || r == RiskImminent
}

// IncidentType is the closed catalogue of reportable incident categories.
type IncidentType string

const (
	IncidentTypeWeapon    IncidentType = "posesion_arma"
	IncidentTypeSubstance IncidentType = "consumo_sustancias"
	IncidentTypeBullying  IncidentType = "bullying"
	IncidentTypeViolence  IncidentType = "violencia_fisica"
	IncidentTypeAccident  IncidentType = "accidente_escolar"
	IncidentTypeExternal  IncidentType = "perturbacion_externa"
	IncidentTypeOther     IncidentType = "otro"
)

// ValidIncidentType reports whether t belongs to the canonical seven-value set.
func ValidIncidentType(t IncidentType) bool {
	switch t {
	case IncidentTypeWeapon, IncidentTypeSubstance, IncidentTypeBullying,
		IncidentTypeViolence, IncidentTypeAccident, IncidentTypeExternal,
		IncidentTypeOther:
		return true
	}
	return false
}

// CoerceIncidentType maps any externally supplied label into the canonical set.
// The second return value is false when the label had to be coerced to "otro".
func CoerceIncidentType(raw string) (IncidentType, bool) {
	t := IncidentType(raw)
	if ValidIncidentType(t) {
		return t, true
	}
	return IncidentTypeOther, false
}

// IncidentStatus captures the incident lifecycle.
type IncidentStatus string

const (
	IncidentStatusGenerated IncidentStatus = "generada"
	IncidentStatusOpened    IncidentStatus = "abierta"
	IncidentStatusSigned    IncidentStatus = "firmada"
	IncidentStatusClosed    IncidentStatus = "cerrada"
)

var incidentStatusOrder = map[IncidentStatus]int{
	IncidentStatusGenerated: 0,
	IncidentStatusOpened:    1,
	IncidentStatusSigned:    2,
	IncidentStatusClosed:    3,
}

// CanTransitionTo permits only single forward steps along the lifecycle.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	from, ok := incidentStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := incidentStatusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// ProtocolAction is one recommended urgent action within the protocol checklist.
type ProtocolAction struct {
	ID          string `json:"id"`
	Descripcion string `json:"descripcion"`
}

// ProtocolCheck is the persisted checklist: ordered actions plus completion flags.
type ProtocolCheck struct {
	Acciones    []ProtocolAction `json:"acciones"`
	Completadas map[string]bool  `json:"completadas"`
}

// Value serialises the checklist for the JSONB column.
func (p ProtocolCheck) Value() (driver.Value, error) {
	if p.Completadas == nil {
		p.Completadas = map[string]bool{}
	}
	return json.Marshal(p)
}

// Scan validates the stored JSON at the aggregate boundary instead of trusting it.
func (p *ProtocolCheck) Scan(src interface{}) error {
	if src == nil {
		*p = ProtocolCheck{Completadas: map[string]bool{}}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported protocolo_check type %T", src)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("malformed protocolo_check payload: %w", err)
	}
	if p.Completadas == nil {
		p.Completadas = map[string]bool{}
	}
	return nil
}

// Incident is one reported safety event and its legal documentation.
// Column names follow the legacy persisted contract.
type Incident struct {
	ID            string         `db:"id" json:"id"`
	PlantelID     string         `db:"plantel_id" json:"plantelId"`
	CreatedBy     string         `db:"created_by" json:"createdBy"`
	StudentID     string         `db:"alumno_id" json:"studentId"`
	Narrative     string         `db:"descripcion_hechos" json:"narrative"`
	Type          IncidentType   `db:"tipo" json:"type"`
	RiskLevel     RiskLevel      `db:"nivel_riesgo" json:"riskLevel"`
	ActaContent   string         `db:"acta_hechos_content" json:"actaContent"`
	Protocol      ProtocolCheck  `db:"protocolo_check" json:"protocol"`
	Status        IncidentStatus `db:"estado" json:"status"`
	SignedActaURL *string        `db:"acta_firmada_url" json:"signedActaUrl,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// Escalated mirrors the display-only confirmation flag; it is never stored.
func (i *Incident) Escalated() bool {
	return i.RiskLevel.Escalated()
}

// Editable reports whether the acta draft may still be modified.
func (i *Incident) Editable() bool {
	return i.Status != IncidentStatusClosed
}

// IncidentFilter constrains listing queries.
type IncidentFilter struct {
	PlantelID string
	StudentID string
	Status    []IncidentStatus
	Limit     int
	Offset    int
}
