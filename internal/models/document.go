package models

import "time"

// RawDocument is one input file, loaded fully into memory before processing.
type RawDocument struct {
	ID      string
	Name    string
	Path    string
	Format  string // lowercased extension without the dot, e.g. "pdf"
	Content []byte
	Loaded  time.Time
}

// FieldValue is a single field returned by the document service.
// Number is only meaningful when NumberValid is true; coercion failures
// keep the raw text and mark the value unparsed instead of erroring.
type FieldValue struct {
	Raw         string
	Confidence  float64
	Page        int
	Region      []float64
	Number      float64
	NumberValid bool
}

// ExtractedFields is the normalized output of the document extraction stage.
type ExtractedFields struct {
	Fields map[string]FieldValue
	Text   string
	Tables [][][]string
}

// Field returns the named field and whether it was extracted.
func (e ExtractedFields) Field(name string) (FieldValue, bool) {
	if e.Fields == nil {
		return FieldValue{}, false
	}
	v, ok := e.Fields[name]
	return v, ok
}
