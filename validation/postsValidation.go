package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"blog/models"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents custom validation errors
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(e.Errors, ", "))
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their form/JSON name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidatePost trims the submitted title and content and checks that both are present.
// The trimmed input is returned so callers store what was validated.
func ValidatePost(in models.PostInput) (models.PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	err := validate.Struct(in)
	if err == nil {
		return in, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return in, err
	}

	var messages []string
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return in, &ValidationError{Errors: messages}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: %s", fe.Field(), fe.Tag())
	}
}

// ParseID parses a post id from a URL. Only positive integers are accepted.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", s)
	}
	return id, nil
}
