package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
)

// RunStorageTests runs the behaviour shared by every storage backend.
// repos must return empty repositories on each call.
func RunStorageTests(t *testing.T, repos func(t *testing.T) (teacher.Repository, attendance.Storage)) {
	t.Run("teachers", func(t *testing.T) {
		tr, _ := repos(t)
		testTeachers(t, tr)
	})
	t.Run("years and students", func(t *testing.T) {
		tr, st := repos(t)
		testYearsAndStudents(t, tr, st)
	})
	t.Run("subjects", func(t *testing.T) {
		tr, st := repos(t)
		testSubjects(t, tr, st)
	})
	t.Run("attendance", func(t *testing.T) {
		tr, st := repos(t)
		testAttendance(t, tr, st)
	})
	t.Run("concurrent inserts", func(t *testing.T) {
		tr, st := repos(t)
		testConcurrentInserts(t, tr, st)
	})
}

func testTeachers(t *testing.T, repo teacher.Repository) {
	ctx := context.Background()
	tchr := CreateTeacher(t, repo, "Ada Lovelace", "ada", "s3cr3t-pass", true)
	require.NotEmpty(t, tchr.ID)

	_, err := repo.CreateTeacher(ctx, teacher.Teacher{Username: "ada", CreatedAt: core.NowUTC(), PasswordHash: []byte("x")})
	assert.Equal(t, teacher.ErrUsernameExists, err)

	got, err := repo.GetTeacher(ctx, teacher.GetFilter{Username: "ada"})
	require.NoError(t, err)
	assert.Equal(t, tchr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("s3cr3t-pass"))
	assert.True(t, got.LastLogin.IsZero())

	_, err = repo.GetTeacher(ctx, teacher.GetFilter{ID: "missing"})
	assert.Equal(t, teacher.ErrNotFound, err)

	got.LastLogin = core.NowUTC()
	got.Name = "Ada King"
	updated, err := repo.UpdateTeacher(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.Name)
	assert.WithinDuration(t, got.LastLogin, updated.LastLogin, time.Millisecond)

	_, err = repo.UpdateTeacher(ctx, teacher.Teacher{ID: "missing", Username: "ghost"})
	assert.Equal(t, teacher.ErrNotFound, err)
}

func testYearsAndStudents(t *testing.T, _ teacher.Repository, st attendance.Storage) {
	ctx := context.Background()
	se := CreateYear(t, st, "SE")
	fe := CreateYear(t, st, "FE")

	_, err := st.CreateYear(ctx, attendance.Year{Name: "SE", CreatedAt: core.NowUTC()})
	assert.Equal(t, attendance.ErrYearExists, err)

	years, err := st.QueryYears(ctx)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, []string{fe.ID, se.ID}, []string{years[0].ID, years[1].ID})

	got, err := st.FindYear(ctx, se.ID)
	require.NoError(t, err)
	assert.Equal(t, "SE", got.Name)
	_, err = st.FindYear(ctx, "missing")
	assert.Equal(t, attendance.ErrYearNotFound, err)

	CreateStudent(t, st, se.ID, "STU002", "Bob")
	CreateStudent(t, st, se.ID, "STU001", "Alice")
	CreateStudent(t, st, fe.ID, "STU001", "Carol") // same key, other year

	_, err = st.CreateStudent(ctx, attendance.Student{Name: "Alicia", StudentID: "STU001", YearID: se.ID, CreatedAt: core.NowUTC()})
	assert.Equal(t, attendance.ErrStudentExists, err)

	students, err := st.FindStudentsByYear(ctx, se.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "STU001", students[0].StudentID)
	assert.Equal(t, "STU002", students[1].StudentID)

	students, err = st.FindStudentsByYear(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, students)
}

func testSubjects(t *testing.T, tr teacher.Repository, st attendance.Storage) {
	ctx := context.Background()
	ada := CreateTeacher(t, tr, "Ada", "ada", "pwd", true)
	bob := CreateTeacher(t, tr, "Bob", "bob", "pwd", true)
	se := CreateYear(t, st, "SE")

	math := CreateSubject(t, st, ada.ID, se.ID, "Math 101")
	nowUTC := core.NowUTC
	core.NowUTC = func() time.Time { return nowUTC().Add(time.Second) }
	defer func() { core.NowUTC = nowUTC }()
	algo := CreateSubject(t, st, ada.ID, "", "Algorithms")
	CreateSubject(t, st, bob.ID, se.ID, "Physics")

	got, err := st.FindSubject(ctx, math.ID)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.TeacherID)
	assert.Equal(t, se.ID, got.YearID.String)
	assert.False(t, algo.YearID.Valid)

	_, err = st.FindSubject(ctx, "missing")
	assert.Equal(t, attendance.ErrSubjectNotFound, err)

	subjects, err := st.QuerySubjects(ctx, attendance.SubjectFilter{TeacherID: ada.ID}, nil)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Algorithms", subjects[0].Name)
	assert.Equal(t, "Math 101", subjects[1].Name)

	subjects, err = st.QuerySubjects(ctx, attendance.SubjectFilter{TeacherID: ada.ID}, []core.DBOrdering{{Field: "created_at"}})
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, algo.ID, subjects[0].ID)

	subjects, err = st.QuerySubjects(ctx, attendance.SubjectFilter{YearID: se.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, subjects, 2)

	_, err = st.InsertAttendance(ctx, math.ID, "STU001", core.NowUTC())
	require.NoError(t, err)
	require.NoError(t, st.DeleteSubject(ctx, math.ID))
	_, err = st.FindSubject(ctx, math.ID)
	assert.Equal(t, attendance.ErrSubjectNotFound, err)
	records, err := st.FindAttendanceBySubject(ctx, math.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, attendance.ErrSubjectNotFound, st.DeleteSubject(ctx, math.ID))
}

func testAttendance(t *testing.T, tr teacher.Repository, st attendance.Storage) {
	ctx := context.Background()
	ada := CreateTeacher(t, tr, "Ada", "ada", "pwd", true)
	se := CreateYear(t, st, "SE")
	math := CreateSubject(t, st, ada.ID, se.ID, "Math 101")
	algo := CreateSubject(t, st, ada.ID, se.ID, "Algorithms")

	at := core.NowUTC()
	rec, err := st.InsertAttendance(ctx, math.ID, "STU001", at)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, attendance.StatusPresent, rec.Status)

	_, err = st.InsertAttendance(ctx, math.ID, "STU001", core.NowUTC())
	assert.Equal(t, attendance.ErrConflict, err)

	// same student, other subject
	_, err = st.InsertAttendance(ctx, algo.ID, "STU001", core.NowUTC())
	require.NoError(t, err)
	_, err = st.InsertAttendance(ctx, math.ID, "STU002", core.NowUTC())
	require.NoError(t, err)

	records, err := st.FindAttendanceBySubject(ctx, math.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "STU001", records[0].StudentID)
	assert.True(t, rec.Timestamp.Equal(records[0].Timestamp), "timestamp = %v, want %v", records[0].Timestamp, rec.Timestamp)
	assert.WithinDuration(t, at, records[0].Timestamp, time.Millisecond)

	cnt, err := st.DeleteAttendanceBySubject(ctx, math.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)
	cnt, err = st.DeleteAttendanceBySubject(ctx, math.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cnt)

	// other subjects are untouched
	records, err = st.FindAttendanceBySubject(ctx, algo.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = st.InsertAttendance(ctx, math.ID, "STU001", core.NowUTC())
	assert.NoError(t, err, "re-recording after a clear")

	// sub-microsecond clocks
	precise := time.Date(2024, 3, 4, 9, 30, 0, 123456789, time.UTC)
	rec, err = st.InsertAttendance(ctx, algo.ID, "STU002", precise)
	require.NoError(t, err)
	records, err = st.FindAttendanceBySubject(ctx, algo.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "STU002", records[1].StudentID)
	assert.True(t, rec.Timestamp.Equal(records[1].Timestamp), "timestamp = %v, want %v", records[1].Timestamp, rec.Timestamp)
	assert.WithinDuration(t, precise, rec.Timestamp, time.Millisecond)
}

func testConcurrentInserts(t *testing.T, tr teacher.Repository, st attendance.Storage) {
	ctx := context.Background()
	ada := CreateTeacher(t, tr, "Ada", "ada", "pwd", true)
	se := CreateYear(t, st, "SE")
	math := CreateSubject(t, st, ada.ID, se.ID, "Math 101")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.InsertAttendance(ctx, math.ID, "STU001", core.NowUTC())
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				accepted++
			case attendance.ErrConflict:
				conflicts++
			default:
				t.Errorf("InsertAttendance() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, conflicts)
	records, err := st.FindAttendanceBySubject(ctx, math.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
