package model

import (
	"fmt"
	"maps"
	"strings"
)

// Kind classifies what a registration does with data.
type Kind string

const (
	KindConverter Kind = "converter"
	KindValidator Kind = "validator"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindConverter, KindValidator:
		return true
	}
	return false
}

// Well-known property keys. Filters address registrations through these.
const (
	PropType    = "type"
	PropInData  = "in_data"
	PropOutData = "out_data"
	PropRemote  = "remote"
	PropID      = "service.pid"
	PropLabel   = "label"
)

// Sentinel formats.
const (
	// NullData is the format of an absent data value.
	NullData = "null"
	// FileExtPrefix marks an extension-qualified target such as "file-ext:csv".
	FileExtPrefix = "file-ext:"
	// FileFormat is the bare generic file format.
	FileFormat = "file"
	// FileWildcard matches every concrete file format ("file:text/csv", ...).
	FileWildcard = "file:*"
	// RootType is the universal root of every type hierarchy.
	RootType = "object"
	// Wildcard is the pattern character accepted in formats.
	Wildcard = "*"
)

// IsExtensionQualified reports whether format names a file-extension target.
func IsExtensionQualified(format string) bool {
	return strings.HasPrefix(format, FileExtPrefix)
}

// HasWildcard reports whether format is a pattern rather than a concrete format.
func HasWildcard(format string) bool {
	return strings.Contains(format, Wildcard)
}

// Registration is a handle to a converter or validator announced by the registry.
// ID is the stable identity used to match add, modify and remove events.
type Registration struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	InFormat   string            `json:"in_format"`
	OutFormat  string            `json:"out_format"`
	Remote     bool              `json:"remote,omitempty"`
	Label      string            `json:"label,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Property returns the value of a declared property. Well-known keys map onto
// the registration fields; anything else is looked up in Properties. Empty
// values are treated as absent, and remote is present only when Remote is set.
func (r *Registration) Property(key string) (string, bool) {
	var v string
	switch strings.ToLower(key) {
	case PropType:
		v = string(r.Kind)
	case PropInData:
		v = r.InFormat
	case PropOutData:
		v = r.OutFormat
	case PropID:
		v = r.ID
	case PropLabel:
		v = r.Label
	case PropRemote:
		if !r.Remote {
			return "", false
		}
		return "true", true
	default:
		for k, pv := range r.Properties {
			if strings.EqualFold(k, key) {
				v = pv
				break
			}
		}
	}
	return v, v != ""
}

// Clone returns a deep copy of the registration.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	c := *r
	c.Properties = maps.Clone(r.Properties)
	return &c
}

// String returns a compact description used in logs.
func (r *Registration) String() string {
	return fmt.Sprintf("%s[%s %s->%s]", r.ID, r.Kind, r.InFormat, r.OutFormat)
}

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateRegistration checks a Registration before it enters the registry.
// Formats may be empty: such registrations are accepted but never become edges.
func ValidateRegistration(r *Registration) error {
	var ve ValidationError

	if !r.Kind.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "kind",
			Message: fmt.Sprintf("invalid value %q", r.Kind),
		})
	}
	if strings.ContainsAny(r.ID, " \t\n\r") {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "cannot contain whitespace"})
	}
	if strings.ContainsAny(r.InFormat, "()") {
		ve.Errors = append(ve.Errors, FieldError{Field: "in_format", Message: "cannot contain parentheses"})
	}
	if strings.ContainsAny(r.OutFormat, "()") {
		ve.Errors = append(ve.Errors, FieldError{Field: "out_format", Message: "cannot contain parentheses"})
	}

	if len(ve.Errors) > 0 {
		return &ve
	}
	return nil
}
