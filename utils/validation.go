package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// MapValidationErrors flattens gin binding failures into field -> tag pairs
// for the error response body. Non-validator errors map to a single
// "request" entry.
func MapValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		out["request"] = err.Error()
		return out
	}

	for _, ve := range validationErrors {
		out[ve.Field()] = ve.Tag()
	}
	return out
}
