package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	"github.com/trezcool/eduapp/storage/database"
)

// PrepareDB opens a migrated sqlite database in a temporary directory, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Engine = core.EngineSQLite
	conf.Database.Name = filepath.Join(t.TempDir(), "test.db")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateTeacher(t *testing.T, repo teacher.Repository, name, uname, pwd string, isActive bool) teacher.Teacher {
	t.Helper()
	tchr := teacher.Teacher{
		Name:      name,
		Username:  uname,
		IsActive:  isActive,
		CreatedAt: core.NowUTC(),
	}
	if pwd != "" {
		if err := tchr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateTeacher() failed: %v", err)
		}
	}
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateYear(t *testing.T, store attendance.Storage, name string) attendance.Year {
	t.Helper()
	y, err := store.CreateYear(context.Background(), attendance.Year{Name: name, CreatedAt: core.NowUTC()})
	if err != nil {
		t.Fatalf("CreateYear() failed: %v", err)
	}
	return y
}

func CreateStudent(t *testing.T, store attendance.Storage, yearID, studentID, name string) attendance.Student {
	t.Helper()
	s, err := store.CreateStudent(context.Background(), attendance.Student{
		Name:      name,
		StudentID: studentID,
		YearID:    yearID,
		CreatedAt: core.NowUTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// CreateSubject creates a subject owned by teacherID; yearID may be empty.
func CreateSubject(t *testing.T, store attendance.Storage, teacherID, yearID, name string) attendance.Subject {
	t.Helper()
	s, err := store.CreateSubject(context.Background(), attendance.Subject{
		Name:      name,
		TeacherID: teacherID,
		YearID:    null.NewString(yearID, yearID != ""),
		CreatedAt: core.NowUTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

// Payload builds a QR payload for a student.
func Payload(studentID, name string) string {
	return `{"id":"` + studentID + `","name":"` + name + `"}`
}
