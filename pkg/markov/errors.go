package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for non-positive sample sizes or lengths
	// and for inputs that cannot satisfy the sample size.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShortStream is returned when a stream ends before a full context
	// could be read from it.
	ErrShortStream = fmt.Errorf("%w: stream shorter than sample size", ErrInvalidArgument)

	// ErrStreamRead wraps any I/O failure encountered while learning.
	ErrStreamRead = errors.New("unable to read from provided stream")

	// ErrEmptyTable is returned when generation is attempted against a table
	// that holds no contexts.
	ErrEmptyTable = errors.New("pattern table is empty")
)
