package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"formlens/internal/domain/metering"
)

// metric validates that a request field names a known metric type.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
			return metering.MetricType(fl.Field().String()).IsValid()
		})
	}
}
