package simplecms

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrUnauthorized indicates a mutation was attempted without a principal
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates a required field is missing or invalid
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a category id collision or a category still in use
	ErrConflict = errors.New("conflict")

	// ErrUploadFailed indicates a MediaStore upload failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrNotFound indicates an update targeted a record that does not exist
	ErrNotFound = errors.New("not found")

	// ErrTransport indicates the backing store could not be reached or rejected a request
	ErrTransport = errors.New("transport failed")

	// ErrCategoryInUse is the conflict returned when deleting a referenced category
	ErrCategoryInUse = fmt.Errorf("%w: category in use", ErrConflict)

	// ErrCategoryExists is the conflict returned when a derived category id is taken
	ErrCategoryExists = fmt.Errorf("%w: category already exists", ErrConflict)

	// ErrRemoveUnsupported indicates a MediaStore cannot delete objects with its credentials
	ErrRemoveUnsupported = errors.New("media removal not supported")

	// ErrNoMediaStore indicates a file was attached but no MediaStore is configured
	ErrNoMediaStore = errors.New("no media store configured")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("validation failed for %s", e.Field)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UploadError reports a failed MediaStore upload for one media kind.
type UploadError struct {
	Kind MediaKind
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Kind, e.Err)
}

// Is lets errors.Is(err, ErrUploadFailed) match regardless of the cause.
func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StoreError represents a backing-store failure during a repository operation
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

// Is lets errors.Is(err, ErrTransport) match every store failure.
func (e *StoreError) Is(target error) bool {
	return target == ErrTransport
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
