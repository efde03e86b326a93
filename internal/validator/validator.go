// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"slices"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"stockchart/internal/chart"
	"stockchart/internal/view"
)

var registerOnce sync.Once

// Register registers all custom validators with the Gin binding engine.
// Calls after the first are no-ops.
func Register() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			RegisterOn(v)
		}
	})
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("chart_kind", validateChartKind)
	_ = v.RegisterValidation("window_days", validateWindowDays)
}

// validateChartKind accepts line, area or bar in any case.
func validateChartKind(fl validator.FieldLevel) bool {
	_, err := chart.ParseKind(fl.Field().String())
	return err == nil
}

func validateWindowDays(fl validator.FieldLevel) bool {
	return slices.Contains(view.WindowChoices, int(fl.Field().Int()))
}
