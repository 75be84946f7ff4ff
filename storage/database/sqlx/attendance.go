package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
)

type (
	yearRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}

	studentRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		StudentID string    `db:"student_id"`
		YearID    string    `db:"year_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	subjectRow struct {
		ID        string      `db:"id"`
		Name      string      `db:"name"`
		TeacherID string      `db:"teacher_id"`
		YearID    null.String `db:"year_id"`
		CreatedAt time.Time   `db:"created_at"`
	}

	recordRow struct {
		ID        string    `db:"id"`
		SubjectID string    `db:"subject_id"`
		StudentID string    `db:"student_id"`
		Status    string    `db:"status"`
		Timestamp time.Time `db:"timestamp"`
	}
)

func (r yearRow) toYear() attendance.Year {
	return attendance.Year{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.UTC()}
}

func (r studentRow) toStudent() attendance.Student {
	return attendance.Student{ID: r.ID, Name: r.Name, StudentID: r.StudentID, YearID: r.YearID, CreatedAt: r.CreatedAt.UTC()}
}

func (r subjectRow) toSubject() attendance.Subject {
	return attendance.Subject{ID: r.ID, Name: r.Name, TeacherID: r.TeacherID, YearID: r.YearID, CreatedAt: r.CreatedAt.UTC()}
}

func (r recordRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:        r.ID,
		SubjectID: r.SubjectID,
		StudentID: r.StudentID,
		Status:    attendance.Status(r.Status),
		Timestamp: r.Timestamp.UTC(),
	}
}

// dbTime truncates t to the TIMESTAMP precision.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) attendance.Storage {
	return &attendanceRepository{db: db}
}

// Years

func (repo *attendanceRepository) FindYear(ctx context.Context, id string) (attendance.Year, error) {
	var row yearRow
	q := repo.db.Rebind("SELECT id, name, created_at FROM years WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Year{}, attendance.ErrYearNotFound
		}
		return attendance.Year{}, errors.Wrap(err, "selecting year")
	}
	return row.toYear(), nil
}

func (repo *attendanceRepository) QueryYears(ctx context.Context) ([]attendance.Year, error) {
	var rows []yearRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT id, name, created_at FROM years ORDER BY name ASC"); err != nil {
		return nil, errors.Wrap(err, "selecting years")
	}
	years := make([]attendance.Year, 0, len(rows))
	for _, r := range rows {
		years = append(years, r.toYear())
	}
	return years, nil
}

func (repo *attendanceRepository) CreateYear(ctx context.Context, y attendance.Year) (attendance.Year, error) {
	y.ID = uuid.NewString()
	y.CreatedAt = dbTime(y.CreatedAt)
	q := repo.db.Rebind("INSERT INTO years (id, name, created_at) VALUES (?, ?, ?)")
	if _, err := repo.db.ExecContext(ctx, q, y.ID, y.Name, y.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return attendance.Year{}, attendance.ErrYearExists
		}
		return attendance.Year{}, errors.Wrap(err, "inserting year")
	}
	return y, nil
}

// Students

func (repo *attendanceRepository) FindStudentsByYear(ctx context.Context, yearID string) ([]attendance.Student, error) {
	var rows []studentRow
	q := repo.db.Rebind("SELECT id, name, student_id, year_id, created_at FROM students WHERE year_id = ? ORDER BY student_id ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, yearID); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]attendance.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *attendanceRepository) CreateStudent(ctx context.Context, s attendance.Student) (attendance.Student, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = dbTime(s.CreatedAt)
	q := repo.db.Rebind("INSERT INTO students (id, name, student_id, year_id, created_at) VALUES (?, ?, ?, ?, ?)")
	if _, err := repo.db.ExecContext(ctx, q, s.ID, s.Name, s.StudentID, s.YearID, s.CreatedAt); err != nil {
		switch {
		case isUniqueViolation(err):
			return attendance.Student{}, attendance.ErrStudentExists
		case isForeignKeyViolation(err):
			return attendance.Student{}, attendance.ErrYearNotFound
		}
		return attendance.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

// Subjects

const subjectColumns = "id, name, teacher_id, year_id, created_at"

func (repo *attendanceRepository) FindSubject(ctx context.Context, id string) (attendance.Subject, error) {
	var row subjectRow
	q := repo.db.Rebind("SELECT " + subjectColumns + " FROM subjects WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Subject{}, attendance.ErrSubjectNotFound
		}
		return attendance.Subject{}, errors.Wrap(err, "selecting subject")
	}
	return row.toSubject(), nil
}

func (repo *attendanceRepository) QuerySubjects(ctx context.Context, filter attendance.SubjectFilter, ordering []core.DBOrdering) ([]attendance.Subject, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.TeacherID != "" {
		conds = append(conds, "teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if filter.YearID != "" {
		conds = append(conds, "year_id = ?")
		args = append(args, filter.YearID)
	}

	q := "SELECT " + subjectColumns + " FROM subjects"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, attendance.SubjectOrderingFields...)

	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	subjects := make([]attendance.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.toSubject())
	}
	return subjects, nil
}

// orderBy renders an ORDER BY clause restricted to allowed fields; defaults to the first allowed field.
func orderBy(ordering []core.DBOrdering, allowed ...string) string {
	ordering = core.CleanOrderings(ordering, allowed...)
	if len(ordering) == 0 {
		return allowed[0] + " ASC"
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return strings.Join(clauses, ", ")
}

func (repo *attendanceRepository) CreateSubject(ctx context.Context, s attendance.Subject) (attendance.Subject, error) {
	s.ID = uuid.NewString()
	s.YearName = ""
	s.CreatedAt = dbTime(s.CreatedAt)
	q := repo.db.Rebind("INSERT INTO subjects (" + subjectColumns + ") VALUES (?, ?, ?, ?, ?)")
	if _, err := repo.db.ExecContext(ctx, q, s.ID, s.Name, s.TeacherID, s.YearID, s.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return attendance.Subject{}, attendance.ErrYearNotFound
		}
		return attendance.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo *attendanceRepository) DeleteSubject(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM attendance WHERE subject_id = ?"), id); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM subjects WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.ErrSubjectNotFound
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Attendance

func (repo *attendanceRepository) FindAttendanceBySubject(ctx context.Context, subjectID string) ([]attendance.Record, error) {
	var rows []recordRow
	q := repo.db.Rebind("SELECT id, subject_id, student_id, status, timestamp FROM attendance WHERE subject_id = ? ORDER BY student_id ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records, nil
}

func (repo *attendanceRepository) InsertAttendance(ctx context.Context, subjectID, studentKey string, at time.Time) (attendance.Record, error) {
	rec := attendance.Record{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		StudentID: studentKey,
		Status:    attendance.StatusPresent,
		Timestamp: dbTime(at),
	}
	q := repo.db.Rebind("INSERT INTO attendance (id, subject_id, student_id, status, timestamp) VALUES (?, ?, ?, ?, ?)")
	if _, err := repo.db.ExecContext(ctx, q, rec.ID, rec.SubjectID, rec.StudentID, string(rec.Status), rec.Timestamp); err != nil {
		switch {
		case isUniqueViolation(err):
			return attendance.Record{}, attendance.ErrConflict
		case isForeignKeyViolation(err):
			return attendance.Record{}, attendance.ErrSubjectNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance")
	}
	return rec, nil
}

func (repo *attendanceRepository) DeleteAttendanceBySubject(ctx context.Context, subjectID string) (int, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM attendance WHERE subject_id = ?"), subjectID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting attendance")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted attendance")
	}
	return int(n), nil
}
