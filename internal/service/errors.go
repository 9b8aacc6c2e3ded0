package service

import (
	"strings"
)

// ValidationError carries the full list of request problems so clients can
// fix them in one round trip.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}
