package services

import (
	"errors"
	"fmt"
)

var (
	// ErrRunTimeout is returned when a pipeline run exceeds ETL_TIMEOUT.
	ErrRunTimeout = errors.New("valuation run timed out")
	// ErrRunInProgress is returned when a run is requested while one is active.
	ErrRunInProgress = errors.New("valuation run already in progress")
)

// FetchError reports an ingestion failure. It aborts the run before any
// write happens.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// BatchError reports a failed batch write. Batches before Batch are committed.
type BatchError struct {
	Stage Stage
	Batch int
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: batch %d/%d failed: %v", e.Stage, e.Batch+1, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
