package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduapp/core"
)

type Service struct {
	store        Storage
	logger       core.Logger
	validate     *validator.Validate
	readAttempts int
	retryDelay   time.Duration
}

func NewService(store Storage, logger core.Logger, validate *validator.Validate, conf *core.Config) *Service {
	attempts := conf.Database.ReadRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return &Service{
		store:        store,
		logger:       logger,
		validate:     validate,
		readAttempts: attempts,
		retryDelay:   100 * time.Millisecond,
	}
}

// read runs an idempotent storage read, retrying storage faults with a linear backoff.
// Domain errors (not found, ...) are returned as-is; exhausted retries yield a *StorageError.
func (svc *Service) read(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= svc.readAttempts; attempt++ {
		if err = fn(); err == nil || isExpected(err) {
			return err
		}
		if attempt == svc.readAttempts {
			break
		}
		svc.logger.Warn("storage read failed, retrying", map[string]interface{}{"op": op, "attempt": attempt}, err)

		select {
		case <-ctx.Done():
			return &StorageError{Op: op, Err: ctx.Err()}
		case <-time.After(time.Duration(attempt) * svc.retryDelay):
		}
	}
	return &StorageError{Op: op, Err: err}
}

// write runs a single, never retried, storage write.
func (svc *Service) write(op string, fn func() error) error {
	if err := fn(); err != nil {
		if isExpected(err) {
			return err
		}
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

func (svc *Service) findSubject(ctx context.Context, id string) (Subject, error) {
	var subj Subject
	err := svc.read(ctx, "finding subject", func() (err error) {
		subj, err = svc.store.FindSubject(ctx, id)
		return err
	})
	return subj, err
}

// ownedSubject finds the subject and checks that teacherID owns it.
func (svc *Service) ownedSubject(ctx context.Context, teacherID, subjectID string) (Subject, error) {
	subj, err := svc.findSubject(ctx, subjectID)
	if err != nil {
		return Subject{}, err
	}
	if subj.TeacherID != teacherID {
		return Subject{}, ErrUnauthorized
	}
	return subj, nil
}

func (svc *Service) withYearName(ctx context.Context, subj Subject) (Subject, error) {
	if !subj.YearID.Valid {
		return subj, nil
	}
	var year Year
	err := svc.read(ctx, "finding year", func() (err error) {
		year, err = svc.store.FindYear(ctx, subj.YearID.String)
		return err
	})
	switch {
	case err == nil:
		subj.YearName = year.Name
	case errors.Cause(err) != ErrYearNotFound:
		return Subject{}, err
	}
	return subj, nil
}

// Years

func (svc *Service) QueryYears(ctx context.Context) ([]Year, error) {
	var years []Year
	err := svc.read(ctx, "querying years", func() (err error) {
		years, err = svc.store.QueryYears(ctx)
		return err
	})
	return years, err
}

func (svc *Service) CreateYear(ctx context.Context, ny NewYear) (Year, error) {
	if err := ny.Validate(svc.validate); err != nil {
		return Year{}, err
	}

	var year Year
	err := svc.write("creating year", func() (err error) {
		year, err = svc.store.CreateYear(ctx, Year{Name: ny.Name, CreatedAt: core.NowUTC()})
		return err
	})
	if errors.Cause(err) == ErrYearExists {
		return Year{}, core.NewFieldError("name", ErrYearExists.Error())
	}
	return year, err
}

// Students

func (svc *Service) QueryStudents(ctx context.Context, yearID string) ([]Student, error) {
	var students []Student
	err := svc.read(ctx, "querying students", func() (err error) {
		students, err = svc.store.FindStudentsByYear(ctx, yearID)
		return err
	})
	return students, err
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	if err := svc.checkYear(ctx, ns.YearID); err != nil {
		return Student{}, err
	}

	var student Student
	err := svc.write("creating student", func() (err error) {
		student, err = svc.store.CreateStudent(ctx, Student{
			Name:      ns.Name,
			StudentID: ns.StudentID,
			YearID:    ns.YearID,
			CreatedAt: core.NowUTC(),
		})
		return err
	})
	if errors.Cause(err) == ErrStudentExists {
		return Student{}, core.NewFieldError("student_id", ErrStudentExists.Error())
	}
	return student, err
}

// checkYear reports a validation error on `year_id` when the year does not exist.
func (svc *Service) checkYear(ctx context.Context, yearID string) error {
	err := svc.read(ctx, "finding year", func() error {
		_, err := svc.store.FindYear(ctx, yearID)
		return err
	})
	if errors.Cause(err) == ErrYearNotFound {
		return core.NewFieldError("year_id", ErrYearNotFound.Error())
	}
	return err
}

// Subjects

// QuerySubjects returns the subjects of the teacher, optionally restricted to a year.
func (svc *Service) QuerySubjects(ctx context.Context, filter SubjectFilter, ordering []core.DBOrdering) ([]Subject, error) {
	ordering = core.CleanOrderings(ordering, SubjectOrderingFields...)

	var subjects []Subject
	err := svc.read(ctx, "querying subjects", func() (err error) {
		subjects, err = svc.store.QuerySubjects(ctx, filter, ordering)
		return err
	})
	if err != nil || len(subjects) == 0 {
		return subjects, err
	}

	years, err := svc.QueryYears(ctx)
	if err != nil {
		return nil, err
	}
	yearNames := make(map[string]string, len(years))
	for _, y := range years {
		yearNames[y.ID] = y.Name
	}
	for i := range subjects {
		subjects[i].YearName = yearNames[subjects[i].YearID.String]
	}
	return subjects, nil
}

func (svc *Service) CreateSubject(ctx context.Context, teacherID string, ns NewSubject) (Subject, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Subject{}, err
	}
	if ns.YearID != "" {
		if err := svc.checkYear(ctx, ns.YearID); err != nil {
			return Subject{}, err
		}
	}

	var subj Subject
	err := svc.write("creating subject", func() (err error) {
		subj, err = svc.store.CreateSubject(ctx, Subject{
			Name:      ns.Name,
			TeacherID: teacherID,
			YearID:    null.NewString(ns.YearID, ns.YearID != ""),
			CreatedAt: core.NowUTC(),
		})
		return err
	})
	if err != nil {
		return Subject{}, err
	}
	return svc.withYearName(ctx, subj)
}

// DeleteSubject deletes one of the teacher's subjects together with its attendance records.
// Subjects of other teachers are reported as not found.
func (svc *Service) DeleteSubject(ctx context.Context, teacherID, subjectID string) error {
	if _, err := svc.ownedSubject(ctx, teacherID, subjectID); err != nil {
		if errors.Cause(err) == ErrUnauthorized {
			return ErrSubjectNotFound
		}
		return err
	}
	return svc.write("deleting subject", func() error {
		return svc.store.DeleteSubject(ctx, subjectID)
	})
}

// Attendance

// ClearAttendance deletes all attendance records of the subject and returns their count.
func (svc *Service) ClearAttendance(ctx context.Context, teacherID, subjectID string) (int, error) {
	if _, err := svc.ownedSubject(ctx, teacherID, subjectID); err != nil {
		return 0, err
	}

	var cnt int
	err := svc.write("clearing attendance", func() (err error) {
		cnt, err = svc.store.DeleteAttendanceBySubject(ctx, subjectID)
		return err
	})
	if err == nil {
		svc.logger.Info("attendance cleared", map[string]interface{}{"subject_id": subjectID, "deleted": cnt})
	}
	return cnt, err
}
