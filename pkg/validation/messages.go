package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldMessages overrides the generic tag message for specific fields.
var fieldMessages = map[string]map[string]string{
	"Email": {
		"required": "email must not be empty",
		"email":    "email is not a valid address",
	},
	"Password": {
		"required": "password must not be empty",
		"min":      "password must be at least 6 characters",
	},
	"Name": {
		"required": "name must not be empty",
		"min":      "name must be at least 2 characters",
	},
	"Code": {
		"required": "verification code must not be empty",
		"len":      "verification code must be 6 digits",
		"numeric":  "verification code must be numeric",
	},
}

// CustomMessage returns field-specific messages, or nil if none exist.
func CustomMessage(field string) map[string]string {
	return fieldMessages[field]
}

// DefaultMessage builds a generic message for a validation tag.
func DefaultMessage(field, tag string) string {
	field = strings.ToLower(field)

	switch tag {
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "min":
		return fmt.Sprintf("%s is below the minimum length", field)
	case "max":
		return fmt.Sprintf("%s exceeds the maximum length", field)
	case "len":
		return fmt.Sprintf("%s has the wrong length", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// MessagesFor converts a gin binding error into user-facing messages.
// Non-validator errors collapse to a single generic message.
func MessagesFor(err error) []string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []string{"request body is malformed"}
	}

	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		if custom := CustomMessage(e.Field()); custom != nil {
			if msg, ok := custom[e.Tag()]; ok {
				messages = append(messages, msg)
				continue
			}
		}
		messages = append(messages, DefaultMessage(e.Field(), e.Tag()))
	}
	return messages
}
