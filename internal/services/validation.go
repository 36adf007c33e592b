package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/models"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")
	// ErrInvalidDate is returned on the strict path when due date text cannot be parsed
	ErrInvalidDate = errors.New("invalid due date format, use YYYY-MM-DD or YYYY-MM-DD HH:MM")
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TaskFields are the user-editable text fields of a task after normalization.
type TaskFields struct {
	Title       string          `field:"title" validate:"required,max=140"`
	Description string          `field:"description"`
	Category    string          `field:"category" validate:"required,max=60"`
	Priority    models.Priority `field:"priority" validate:"required,oneof=Low Medium High Urgent"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	return v
}

// NormalizeTaskFields trims input, applies the category and priority defaults and
// validates the result. The same rules apply to the web form and the JSON API.
func NormalizeTaskFields(title, description, category, priority string) (TaskFields, error) {
	fields := TaskFields{
		Title:       strings.TrimSpace(title),
		Description: description,
		Category:    strings.TrimSpace(category),
	}
	if fields.Category == "" {
		fields.Category = constants.DefaultCategory
	}

	priority = strings.TrimSpace(priority)
	if priority == "" {
		priority = constants.DefaultPriority
	}
	if p, ok := models.ParsePriority(priority); ok {
		fields.Priority = p
	} else {
		fields.Priority = models.Priority(priority)
	}

	if err := validate.Struct(fields); err != nil {
		return TaskFields{}, toValidationError(err)
	}
	return fields, nil
}

func toValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrors[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: field + " is required"}
	case "min":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s must be at least %s characters", field, fe.Param())}
	case "max":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	case "email":
		return &ValidationError{Field: field, Message: field + " must be a valid email address"}
	case "oneof":
		return &ValidationError{Field: field, Message: field + " must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")}
	default:
		return &ValidationError{Field: field, Message: field + " is invalid"}
	}
}

// ParseDueDate reads flexible date/time text such as "2026-10-20", "2026-10-20 14:30"
// or "Oct 20, 2026 2:30pm". Text without an offset is read in loc. Blank text means no due date.
func ParseDueDate(text string, loc *time.Location) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	t, err := dateparse.ParseIn(text, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	t = t.UTC()
	return &t, nil
}
