package output

import "io"

// Handler renders a collection of results (or an error) in one output format.
type Handler[T any] interface {
	// Writer returns the io.Writer this Handler will write to.
	Writer() io.Writer

	// HandleResults renders the given collection of items.
	HandleResults(items ...T) error

	// HandleError renders the error.
	HandleError(err error) error
}

// ResultsPayload wraps a collection of items under a top-level "results" key
// for the structured formats.
type ResultsPayload[T any] struct {
	Results []T `json:"results" yaml:"results"`
}

// ErrorPayload wraps an error message under a top-level "error" key for the
// structured formats.
type ErrorPayload struct {
	Error string `json:"error" yaml:"error"`
}

// ItemFunc renders a single item for the text format.
type ItemFunc[T any] func(w io.Writer, item T) error
