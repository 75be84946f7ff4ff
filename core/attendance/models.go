package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduapp/core"
)

// Status is the attendance status of a student for a subject.
// Only Present is ever stored: absence is the lack of a Record.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

type (
	// Year groups students and, optionally, subjects.
	Year struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Student is enrolled in a Year. StudentID is the business key encoded in QR badges.
	Student struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		StudentID string    `json:"student_id"`
		YearID    string    `json:"year_id"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Subject is owned by a single teacher. Attendance is scoped to a Subject.
	Subject struct {
		ID        string      `json:"id"`
		Name      string      `json:"name"`
		TeacherID string      `json:"teacher_id"`
		YearID    null.String `json:"year_id"`
		YearName  string      `json:"year_name"` // not persisted
		CreatedAt time.Time   `json:"created_at"`
	}

	// Record marks a student (by business key) present for a subject.
	Record struct {
		ID        string    `json:"id"`
		SubjectID string    `json:"subject_id"`
		StudentID string    `json:"student_id"`
		Status    Status    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}

	// RosterEntry is a student of the subject's year merged with their attendance.
	RosterEntry struct {
		ID           string      `json:"id"`
		Name         string      `json:"name"`
		StudentID    string      `json:"student_id"`
		Status       Status      `json:"status"`
		AttendanceID null.String `json:"attendance_id"`
		Timestamp    null.Time   `json:"timestamp"`
	}

	SubjectFilter struct {
		TeacherID string
		YearID    string
	}
)

func (e RosterEntry) IsPresent() bool { return e.Status == StatusPresent }

// NewYear contains information needed to create a Year.
type NewYear struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (ny *NewYear) Validate(validate *validator.Validate) error {
	ny.Name = core.CleanString(ny.Name)
	return validate.Struct(ny)
}

// NewStudent contains information needed to enroll a Student.
type NewStudent struct {
	Name      string `json:"name" validate:"required,max=255"`
	StudentID string `json:"student_id" validate:"required,max=255"`
	YearID    string `json:"year_id" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.YearID = core.CleanString(ns.YearID)
	return validate.Struct(ns)
}

// NewSubject contains information needed to create a Subject.
type NewSubject struct {
	Name   string `json:"name" validate:"required,max=255"`
	YearID string `json:"year_id"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.YearID = core.CleanString(ns.YearID)
	return validate.Struct(ns)
}

// NewRecord marks a student present without going through a QR payload.
type NewRecord struct {
	SubjectID string `json:"subject_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.SubjectID = core.CleanString(nr.SubjectID)
	nr.StudentID = core.CleanString(nr.StudentID)
	return validate.Struct(nr)
}
