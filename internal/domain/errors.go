package domain

import (
	"errors"
	"fmt"
)

// ValidationError is a local, pre-network rejection of a write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// FetchError reports a failed list load.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch bookings: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError reports a missing document.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Collection, e.ID)
}

// UploadError reports a failed image upload.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("upload image: %v", e.Err)
	}
	return fmt.Sprintf("upload image %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsFetch(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

func IsUpload(err error) bool {
	var target *UploadError
	return errors.As(err, &target)
}
