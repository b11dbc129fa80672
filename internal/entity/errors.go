package entity

import "fmt"

// ValidationError rejects malformed input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid alert: %s", e.Reason)
	}
	return fmt.Sprintf("invalid alert %s: %s", e.Field, e.Reason)
}
