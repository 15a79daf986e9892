package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrInventoryExhausted    = errors.New("no slots available for this premise")
	ErrPremiseNotFound       = errors.New("premise not found")
	ErrNotFoundOrNotEligible = errors.New("booking not found or not eligible")
	ErrBookingNotFound       = errors.New("booking not found")
)

// ValidationError lists offending input fields with a reason each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}

	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, reason string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = reason
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
