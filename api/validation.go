// Package api exposes the tag search services over HTTP.
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// validate checks the `validate` tags on request parameter structs. It reports
// fields by their form or json name.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// ValidateStruct runs struct validation and converts failures into a ValidationResult
func ValidateStruct(target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	err := validate.Struct(target)
	if err == nil {
		return result
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.AddError("request", err.Error())
		return result
	}
	for _, fe := range fieldErrs {
		result.AddError(fe.Field(), describeFieldError(fe))
	}
	return result
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}

// ValidateQueryBinding binds query parameters into target and validates it
func ValidateQueryBinding(c *gin.Context, target interface{}) *ValidationResult {
	if err := c.ShouldBindQuery(target); err != nil {
		result := &ValidationResult{Valid: true}
		result.AddError("query_parameters", "Invalid query parameters: "+err.Error())
		return result
	}
	return ValidateStruct(target)
}

// ValidateJSONBinding binds the JSON body into target; `binding` tags are
// enforced by gin during the bind
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}

// ValidatePostID parses a post id path parameter
func ValidatePostID(raw string) (int64, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		result.AddError("postId", "Post ID must be a positive integer")
		return 0, result
	}
	return id, result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
