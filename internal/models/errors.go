package models

import (
	"fmt"
)

// EmptyDatasetError is returned when a query needs the latest observation
// date but the relation holds no rows
type EmptyDatasetError struct {
	Relation string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s relation is empty", e.Relation)
}

// IsTransient returns false; an empty dataset stays empty for the process lifetime
func (e *EmptyDatasetError) IsTransient() bool {
	return false
}

// InvalidDateError represents a caller-supplied date that is not YYYY-MM-DD
type InvalidDateError struct {
	Field string
	Value string
}

func (e *InvalidDateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("missing %s date, expected YYYY-MM-DD", e.Field)
	}
	return fmt.Sprintf("invalid %s date %q, expected YYYY-MM-DD", e.Field, e.Value)
}

// IsTransient returns false as validation errors are permanent
func (e *InvalidDateError) IsTransient() bool {
	return false
}

// StoreUnavailableError wraps any failure reading the observation store.
// Op names the read that failed.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("observation store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// IsTransient returns true; the store may recover
func (e *StoreUnavailableError) IsTransient() bool {
	return true
}
