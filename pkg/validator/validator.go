package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

// newStructValidator reads the same `binding` tags gin validates requests
// with, so request DTOs can be checked outside a handler.
func newStructValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// Struct validates s against its binding tags.
func Struct(s any) error {
	return structValidator.Struct(s)
}

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Email":       "Email",
		"Password":    "Password",
		"Name":        "Name",
		"Title":       "Title",
		"Description": "Description",
		"Category":    "Category",
		"Priority":    "Priority",
		"Color":       "Color",
		"Code":        "Access code",
		"CollegeID":   "College",
		"Tone":        "Tone",
		"Text":        "Text",
		"Message":     "Message",
		"URL":         "Link URL",
		"PendingLink": "Link URL",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
