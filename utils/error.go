package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError rejects a record intent before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// ResolutionError means a vendor/item reference could not be found or created.
type ResolutionError struct {
	Kind string
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// StoreError wraps a transaction/commit failure. The enclosing batch is rolled back.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure in %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// RelayError is a transport failure on push or pull. Local state is untouched;
// the same batch is retried wholesale on the next invocation.
type RelayError struct {
	Phase string
	Err   error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s failed: %v", e.Phase, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }

// ApplyError is isolated to one remote entry; it never aborts the pull batch.
type ApplyError struct {
	TableName string
	RecordId  int
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("could not apply remote entry %s/%d: %v", e.TableName, e.RecordId, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
