package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/edusafe-mx/plantel-api/internal/models"
)

// ActaPDFExporter renders the official acta de hechos document.
type ActaPDFExporter struct{}

// NewActaPDFExporter constructs the exporter.
func NewActaPDFExporter() *ActaPDFExporter {
	return &ActaPDFExporter{}
}

// RenderActa produces the printable acta for an incident: heading, record
// metadata, the narrated facts, the acta body, and the protocol checklist.
func (e *ActaPDFExporter) RenderActa(incident *models.Incident) ([]byte, error) {
	if incident == nil {
		return nil, fmt.Errorf("incident is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("ACTA DE HECHOS"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	meta := [][2]string{
		{"Folio", incident.ID},
		{"Plantel", incident.PlantelID},
		{"Alumno", incident.StudentID},
		{"Tipo de incidencia", string(incident.Type)},
		{"Nivel de riesgo", string(incident.RiskLevel)},
		{"Fecha de registro", incident.CreatedAt.Format(time.RFC3339)},
	}
	for _, row := range meta {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, tr(row[0]), "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(135, 7, tr(row[1]), "1", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr("Descripción de los hechos"), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, tr(incident.Narrative), "", "", false)
	pdf.Ln(3)

	if strings.TrimSpace(incident.ActaContent) != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, tr("Acta"), "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(incident.ActaContent), "", "", false)
		pdf.Ln(3)
	}

	if len(incident.Protocol.Acciones) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, tr("Protocolo de acciones urgentes"), "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, action := range incident.Protocol.Acciones {
			mark := "[ ]"
			if incident.Protocol.Completadas[action.ID] {
				mark = "[X]"
			}
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s %s", mark, action.Descripcion)), "", "", false)
		}
		pdf.Ln(3)
	}

	pdf.Ln(12)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(85, 7, "_______________________________", "", 0, "C", false, 0, "")
	pdf.CellFormat(85, 7, "_______________________________", "", 1, "C", false, 0, "")
	pdf.CellFormat(85, 6, tr("Nombre y firma del director"), "", 0, "C", false, 0, "")
	pdf.CellFormat(85, 6, tr("Nombre y firma del padre o tutor"), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render acta pdf: %w", err)
	}
	return buf.Bytes(), nil
}
