// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hhmmRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("formula_type", validateFormulaType)
		_ = v.RegisterValidation("temporal_type", validateTemporalType)
		_ = v.RegisterValidation("decay_type", validateDecayType)
		_ = v.RegisterValidation("update_type", validateUpdateType)
		_ = v.RegisterValidation("hhmm", validateHHMM)
	}
}

func validateFormulaType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "linear", "exponential", "sqrt", "logarithmic", "sigmoid":
		return true
	}
	return false
}

func validateTemporalType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "manual", "scheduled", "continuous":
		return true
	}
	return false
}

func validateDecayType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "hourly", "daily", "weekly":
		return true
	}
	return false
}

func validateUpdateType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "steps", "percentage", "absolute":
		return true
	}
	return false
}

func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}
