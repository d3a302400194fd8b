package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors recovered at the handler boundary and mapped to
// structured JSON outcomes.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrStorage  = errors.New("storage failure")
)

// ValidationError carries field-level detail for rejected input. No
// writes happen once one is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type validator struct {
	fields map[string]string
}

func newValidator() *validator {
	return &validator{fields: map[string]string{}}
}

func (v *validator) add(field, message string) {
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = message
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
