package attendance

import "github.com/pkg/errors"

var (
	// errors
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrYearNotFound     = errors.New("year not found")
	ErrUnauthorized     = errors.New("subject does not belong to the authenticated teacher")
	ErrConflict         = errors.New("attendance already recorded for this student")
	ErrYearExists       = errors.New("year already exists")
	ErrStudentExists    = errors.New("student ID already exists in this year")
	ErrMalformedPayload = errors.New("invalid QR code format")
)

// IsNotFound reports whether err is caused by a missing subject or year.
func IsNotFound(err error) bool {
	switch errors.Cause(err) {
	case ErrSubjectNotFound, ErrYearNotFound:
		return true
	}
	return false
}

// isExpected reports whether err is a domain outcome rather than a storage fault.
func isExpected(err error) bool {
	switch errors.Cause(err) {
	case ErrSubjectNotFound, ErrYearNotFound, ErrUnauthorized, ErrConflict, ErrYearExists, ErrStudentExists:
		return true
	}
	return false
}

// StorageError is a transient storage failure (I/O, connection).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageFailure reports whether err is caused by a StorageError.
func IsStorageFailure(err error) bool {
	_, ok := errors.Cause(err).(*StorageError)
	return ok
}
