package models

import "fmt"

// ValidationError reports a malformed or missing snapshot field. The
// offending record is rejected before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid snapshot field %q: %s", e.Field, e.Reason)
}

// InsufficientDataError reports a baseline build attempted with too little
// history. Recoverable: the caller can retry later or lower the day count.
type InsufficientDataError struct {
	SubjectID string
	Have      int
	Need      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for subject %s: have %d snapshots, need %d", e.SubjectID, e.Have, e.Need)
}

// UnknownSubjectError reports an operation that requires a named subject to
// exist. Window and analysis reads degrade gracefully instead of using it.
type UnknownSubjectError struct {
	SubjectID string
}

func (e *UnknownSubjectError) Error() string {
	return fmt.Sprintf("unknown subject %s", e.SubjectID)
}

// DataCorruptionError reports stored data that fails schema validation on
// read. Fatal for the current operation; surfaced to the caller.
type DataCorruptionError struct {
	SubjectID string
	Detail    string
}

func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("corrupt stored data for subject %s: %s", e.SubjectID, e.Detail)
}

// DownstreamModelError wraps a failure from one of the external model
// collaborators. The originating collaborator is always identified and the
// cycle is aborted; no default prediction is fabricated.
type DownstreamModelError struct {
	Collaborator string
	SubjectID    string
	Err          error
}

func (e *DownstreamModelError) Error() string {
	return fmt.Sprintf("%s failed for subject %s: %v", e.Collaborator, e.SubjectID, e.Err)
}

func (e *DownstreamModelError) Unwrap() error {
	return e.Err
}
