package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

func NewAttendanceRepository(db *DB) attendance.Storage {
	return &attendanceRepository{db: db}
}

// Years

func (repo *attendanceRepository) FindYear(_ context.Context, id string) (attendance.Year, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if y, ok := repo.db.years[id]; ok {
		return *y, nil
	}
	return attendance.Year{}, attendance.ErrYearNotFound
}

func (repo *attendanceRepository) QueryYears(_ context.Context) ([]attendance.Year, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	years := make([]attendance.Year, 0, len(repo.db.years))
	for _, y := range repo.db.years {
		years = append(years, *y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Name < years[j].Name })
	return years, nil
}

func (repo *attendanceRepository) CreateYear(_ context.Context, y attendance.Year) (attendance.Year, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.years {
		if other.Name == y.Name {
			return attendance.Year{}, attendance.ErrYearExists
		}
	}
	y.ID = uuid.NewString()
	repo.db.years[y.ID] = &y
	return y, nil
}

// Students

func (repo *attendanceRepository) FindStudentsByYear(_ context.Context, yearID string) ([]attendance.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]attendance.Student, 0)
	for _, s := range repo.db.students {
		if s.YearID == yearID {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].StudentID < students[j].StudentID })
	return students, nil
}

func (repo *attendanceRepository) CreateStudent(_ context.Context, s attendance.Student) (attendance.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.students {
		if other.YearID == s.YearID && other.StudentID == s.StudentID {
			return attendance.Student{}, attendance.ErrStudentExists
		}
	}
	s.ID = uuid.NewString()
	repo.db.students[s.ID] = &s
	return s, nil
}

// Subjects

func (repo *attendanceRepository) FindSubject(_ context.Context, id string) (attendance.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return attendance.Subject{}, attendance.ErrSubjectNotFound
}

func (repo *attendanceRepository) QuerySubjects(_ context.Context, filter attendance.SubjectFilter, ordering []core.DBOrdering) ([]attendance.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]attendance.Subject, 0)
	for _, s := range repo.db.subjects {
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		if filter.YearID != "" && s.YearID.String != filter.YearID {
			continue
		}
		subjects = append(subjects, *s)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(subjects, func(i, j int) bool { return lessSubject(subjects[i], subjects[j], ordering) })
	return subjects, nil
}

func lessSubject(a, b attendance.Subject, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "name":
			cmp = strings.Compare(a.Name, b.Name)
		case "created_at":
			switch {
			case a.CreatedAt.Before(b.CreatedAt):
				cmp = -1
			case a.CreatedAt.After(b.CreatedAt):
				cmp = 1
			}
		}
		if cmp == 0 {
			continue
		}
		if ord.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return false
}

func (repo *attendanceRepository) CreateSubject(_ context.Context, s attendance.Subject) (attendance.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.NewString()
	s.YearName = ""
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *attendanceRepository) DeleteSubject(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return attendance.ErrSubjectNotFound
	}
	repo.deleteAttendance(id)
	delete(repo.db.subjects, id)
	return nil
}

// Attendance

func (repo *attendanceRepository) FindAttendanceBySubject(_ context.Context, subjectID string) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance {
		if rec.SubjectID == subjectID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].StudentID < records[j].StudentID })
	return records, nil
}

func (repo *attendanceRepository) InsertAttendance(_ context.Context, subjectID, studentKey string, at time.Time) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[subjectID]; !ok {
		return attendance.Record{}, attendance.ErrSubjectNotFound
	}
	for _, rec := range repo.db.attendance {
		if rec.SubjectID == subjectID && rec.StudentID == studentKey {
			return attendance.Record{}, attendance.ErrConflict
		}
	}
	rec := attendance.Record{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		StudentID: studentKey,
		Status:    attendance.StatusPresent,
		Timestamp: at,
	}
	repo.db.attendance[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) DeleteAttendanceBySubject(_ context.Context, subjectID string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.deleteAttendance(subjectID), nil
}

// deleteAttendance must be called with the write lock held.
func (repo *attendanceRepository) deleteAttendance(subjectID string) int {
	var cnt int
	for id, rec := range repo.db.attendance {
		if rec.SubjectID == subjectID {
			delete(repo.db.attendance, id)
			cnt++
		}
	}
	return cnt
}
