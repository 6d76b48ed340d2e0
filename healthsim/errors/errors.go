// Package errors holds the typed errors the API uses to map service
// failures onto HTTP responses.
package errors

import "fmt"

// JobNotFoundError reports a lookup for a job id with no matching row.
type JobNotFoundError struct {
	Err   error
	JobID uint
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("no job found for id %d: %s", e.JobID, e.Err)
}

func (e *JobNotFoundError) Unwrap() error { return e.Err }

// ValidationError reports an export request the service refused.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid export request: %s: %s", e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid export request: %s", e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExpiredError reports a job whose files have aged out of the download
// window.
type ExpiredError struct {
	JobID uint
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("job %d has expired and its files are no longer available", e.JobID)
}
