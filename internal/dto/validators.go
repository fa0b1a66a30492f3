package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/edusafe-mx/plantel-api/internal/models"
)

// Enum tags are registered on gin's binding engine so malformed payloads are
// rejected at bind time, before any service logic runs.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("risklevel", func(fl validator.FieldLevel) bool {
		_, err := models.ParseRiskLevel(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("reviewdecision", func(fl validator.FieldLevel) bool {
		switch models.ReviewDecision(fl.Field().String()) {
		case models.ReviewDecisionApprove, models.ReviewDecisionRequestChanges:
			return true
		}
		return false
	})
}
