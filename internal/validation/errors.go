package validation

import "fmt"

// InputError reports user input that is missing or malformed.
// It is returned before any external service is called.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Message)
}

// Required returns an *InputError for a blank required field.
func Required(field string) *InputError {
	return &InputError{Field: field, Message: "is required"}
}
