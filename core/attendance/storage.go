package attendance

import (
	"context"
	"time"

	"github.com/trezcool/eduapp/core"
)

// Storage persists years, students, subjects and attendance records.
// Implementations must enforce at most one Record per (subject, student business key),
// independently of any check done by callers.
type Storage interface {
	// FindYear fails with ErrYearNotFound.
	FindYear(ctx context.Context, id string) (Year, error)
	// QueryYears returns all years ordered by name.
	QueryYears(ctx context.Context) ([]Year, error)
	// CreateYear fails with ErrYearExists when the name is taken.
	CreateYear(ctx context.Context, y Year) (Year, error)

	FindStudentsByYear(ctx context.Context, yearID string) ([]Student, error)
	// CreateStudent fails with ErrStudentExists when the business key is taken within the year.
	CreateStudent(ctx context.Context, s Student) (Student, error)

	// FindSubject fails with ErrSubjectNotFound.
	FindSubject(ctx context.Context, id string) (Subject, error)
	QuerySubjects(ctx context.Context, filter SubjectFilter, ordering []core.DBOrdering) ([]Subject, error)
	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	// DeleteSubject deletes the subject and all its attendance records. Fails with ErrSubjectNotFound.
	DeleteSubject(ctx context.Context, id string) error

	FindAttendanceBySubject(ctx context.Context, subjectID string) ([]Record, error)
	// InsertAttendance stores a Present record. Fails with ErrConflict if one already exists.
	InsertAttendance(ctx context.Context, subjectID, studentKey string, at time.Time) (Record, error)
	// DeleteAttendanceBySubject returns the number of deleted records.
	DeleteAttendanceBySubject(ctx context.Context, subjectID string) (int, error)
}

// SubjectOrderingFields are the fields subjects can be ordered by.
var SubjectOrderingFields = []string{"name", "created_at"}
