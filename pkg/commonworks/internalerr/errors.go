package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrLookup           = errors.New("lookup failed")
	ErrMissingField     = errors.New("missing required field")
)

// Structural sentinels. Any of these aborts the whole run.
var (
	ErrEmptyDocument     = errors.New("document is empty")
	ErrMissingHeader     = errors.New("document header missing")
	ErrMissingSubmitter  = errors.New("header has no sender id")
	ErrMissingGroupTypes = errors.New("group type registry missing")
	ErrMissingGroups     = errors.New("group array missing")
)

// StructuralError reports a document that cannot be ingested at all.
type StructuralError struct {
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error: %v", e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// TransactionError reports a single transaction that was dropped.
// Group is the group type name, Index the position inside the group and
// Key the natural key when it could be read.
type TransactionError struct {
	Group string
	Index int
	Key   string
	Err   error
}

func (e *TransactionError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s transaction %d (%s): %v", e.Group, e.Index, e.Key, e.Err)
	}
	return fmt.Sprintf("%s transaction %d: %v", e.Group, e.Index, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// Diagnostic converts the error into the record kept on a run report.
func (e *TransactionError) Diagnostic() Diagnostic {
	reason := ""
	if e.Err != nil {
		reason = e.Err.Error()
	}
	return Diagnostic{Group: e.Group, Index: e.Index, Key: e.Key, Reason: reason}
}

// StoreError reports a failed batch write. The batch was not retried.
type StoreError struct {
	Kind  string
	Op    string
	Count int
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s (%d items): %v", e.Op, e.Kind, e.Count, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Diagnostic is a dropped-transaction record surfaced to callers.
type Diagnostic struct {
	Group  string `json:"group"`
	Index  int    `json:"index"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// MissingField wraps ErrMissingField with the field name.
func MissingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}
