package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusafe-mx/plantel-api/internal/models"
)

// IncidentRepository persists incident records. Incidents are never deleted;
// legal retention keeps every row forever.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs the repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

const incidentColumns = `id, plantel_id, created_by, alumno_id, descripcion_hechos, tipo,
       nivel_riesgo, acta_hechos_content, protocolo_check, estado, acta_firmada_url, created_at, updated_at`

// Create inserts a new incident row in the generada state.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	if incident.Status == "" {
		incident.Status = models.IncidentStatusGenerated
	}
	now := time.Now().UTC()
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = now
	}
	incident.UpdatedAt = now
	const query = `INSERT INTO incidencias
	(id, plantel_id, created_by, alumno_id, descripcion_hechos, tipo, nivel_riesgo, acta_hechos_content, protocolo_check, estado, acta_firmada_url, created_at, updated_at)
	VALUES (:id, :plantel_id, :created_by, :alumno_id, :descripcion_hechos, :tipo, :nivel_riesgo, :acta_hechos_content, :protocolo_check, :estado, :acta_firmada_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetByID fetches an incident by identifier.
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidencias WHERE id = $1`
	var incident models.Incident
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		return nil, err
	}
	return &incident, nil
}

// List returns incidents matching the filter (newest first).
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + incidentColumns + ` FROM incidencias`)

	conditions := make([]string, 0, 3)
	if filter.PlantelID != "" {
		args = append(args, filter.PlantelID)
		conditions = append(conditions, fmt.Sprintf("plantel_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("alumno_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("estado IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var incidents []models.Incident
	if err := r.db.SelectContext(ctx, &incidents, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// UpdateActa replaces the acta draft while the incident is still editable.
// Returns sql.ErrNoRows when the incident is missing or already closed.
func (r *IncidentRepository) UpdateActa(ctx context.Context, id, content string) error {
	const query = `UPDATE incidencias SET acta_hechos_content = $1, updated_at = $2
	WHERE id = $3 AND estado <> $4`
	result, err := r.db.ExecContext(ctx, query, content, time.Now().UTC(), id, models.IncidentStatusClosed)
	if err != nil {
		return fmt.Errorf("update acta: %w", err)
	}
	return requireRow(result)
}

// UpdateProtocol persists the checklist completion state.
func (r *IncidentRepository) UpdateProtocol(ctx context.Context, id string, protocol models.ProtocolCheck) error {
	const query = `UPDATE incidencias SET protocolo_check = $1, updated_at = $2
	WHERE id = $3 AND estado <> $4`
	result, err := r.db.ExecContext(ctx, query, protocol, time.Now().UTC(), id, models.IncidentStatusClosed)
	if err != nil {
		return fmt.Errorf("update protocol: %w", err)
	}
	return requireRow(result)
}

// Transition moves the incident from one lifecycle state to the next. The
// conditional WHERE makes every transition forward-only and idempotent: a
// repeat of an already-applied transition affects zero rows. signedURL is only
// written on the abierta to firmada step.
func (r *IncidentRepository) Transition(ctx context.Context, id string, from, to models.IncidentStatus, signedURL *string) error {
	setParts := []string{"estado = $1", "updated_at = $2"}
	args := []interface{}{to, time.Now().UTC()}
	if signedURL != nil {
		args = append(args, *signedURL)
		setParts = append(setParts, fmt.Sprintf("acta_firmada_url = $%d", len(args)))
	}
	args = append(args, id, from)
	query := fmt.Sprintf("UPDATE incidencias SET %s WHERE id = $%d AND estado = $%d",
		strings.Join(setParts, ", "), len(args)-1, len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition incident: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
