package model

import "os"

// Data is a value flowing through a conversion: a payload tagged with its
// declared format.
type Data struct {
	Format   string            `json:"format"`
	Payload  any               `json:"payload,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// File is a payload that refers to data on disk by path.
type File string

// IsFile reports whether the payload lives in a file rather than in memory.
func (d *Data) IsFile() bool {
	switch d.Payload.(type) {
	case File, *os.File:
		return true
	}
	return false
}

// TypeDescriptor describes a payload type for the purpose of finding
// alternative source formats: its name, the interfaces it declares and its
// supertype. A non-interface type with no Super extends RootType directly.
type TypeDescriptor struct {
	Name       string
	Interface  bool
	Interfaces []*TypeDescriptor
	Super      *TypeDescriptor
}

// Typed is implemented by payloads that describe their own type hierarchy.
type Typed interface {
	TypeDescriptor() *TypeDescriptor
}

// FormatAliaser is implemented by payloads that list the format identifiers
// they can be read as, in addition to their declared format.
type FormatAliaser interface {
	AlternateFormats() []string
}
