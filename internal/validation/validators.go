package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("node_type", validateNodeType); err != nil {
		panic(fmt.Sprintf("failed to register node_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("pattern_kind", validatePatternKind); err != nil {
		panic(fmt.Sprintf("failed to register pattern_kind validator: %v", err))
	}
}

func validateNodeType(fl validator.FieldLevel) bool {
	return models.NodeType(fl.Field().String()).IsValid()
}

func validatePatternKind(fl validator.FieldLevel) bool {
	return quickinput.IsValidKind(fl.Field().String())
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateNodeType validates a NodeType string value
func ValidateNodeType(value string) error {
	if models.NodeType(value).IsValid() {
		return nil
	}
	names := make([]string, len(models.NodeTypes))
	for i, t := range models.NodeTypes {
		names[i] = string(t)
	}
	return fmt.Errorf("invalid type: %s (must be one of %s)", value, strings.Join(names, ", "))
}

// ValidatePatternKind validates a pattern kind string value
func ValidatePatternKind(value string) error {
	if quickinput.IsValidKind(value) {
		return nil
	}
	names := make([]string, len(quickinput.Kinds))
	for i, k := range quickinput.Kinds {
		names[i] = string(k)
	}
	return fmt.Errorf("invalid pattern kind: %s (must be one of %s)", value, strings.Join(names, ", "))
}

// FirstError turns a validator error into a short message for API responses
func FirstError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return fmt.Sprintf("Validation failed: field '%s' failed on '%s'", strings.ToLower(fe.Field()), fe.Tag())
	}
	return "Validation failed"
}
