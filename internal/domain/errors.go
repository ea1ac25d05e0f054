package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound means the input path does not exist.
	ErrFileNotFound = errors.New("input file not found")

	// ErrEmptyDataset means no row survived year filtering. Consumers render
	// an informational state instead of failing.
	ErrEmptyDataset = errors.New("no records with a year")
)

// SchemaError reports a required column missing from the header.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// ParseError reports a numeric cell that could not be parsed. The field is
// read as zero.
type ParseError struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: column %s: cannot parse %q as a number", e.Line, e.Column, e.Value)
}
