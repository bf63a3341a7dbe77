package geometry

import "fmt"

// GeometryError reports a malformed transform input, typically an
// attitude quaternion that cannot be normalised.
type GeometryError struct {
	Op     string // Operation that rejected the input
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry: %s: %s", e.Op, e.Reason)
}

// InvalidStateError reports an AgentState that lacks a component required
// by the caller (velocity or attitude).
type InvalidStateError struct {
	Field  string // "velocity" or "attitude"
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid agent state: %s %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &InvalidStateError{Field: field, Reason: "is missing"}
}
