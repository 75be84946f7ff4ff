package inmemdb

import (
	"sync"

	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
)

type (
	// DB is a process-local store. A single lock guards all tables so that
	// multi-table writes (eg. subject deletion) are atomic.
	DB struct {
		sync.RWMutex
		teachers   map[string]*teacher.Teacher
		years      map[string]*attendance.Year
		students   map[string]*attendance.Student
		subjects   map[string]*attendance.Subject
		attendance map[string]*attendance.Record
	}
)

func Open() *DB {
	return &DB{
		teachers:   make(map[string]*teacher.Teacher),
		years:      make(map[string]*attendance.Year),
		students:   make(map[string]*attendance.Student),
		subjects:   make(map[string]*attendance.Subject),
		attendance: make(map[string]*attendance.Record),
	}
}

// Reset drops all data.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.teachers = make(map[string]*teacher.Teacher)
	db.years = make(map[string]*attendance.Year)
	db.students = make(map[string]*attendance.Student)
	db.subjects = make(map[string]*attendance.Subject)
	db.attendance = make(map[string]*attendance.Record)
}
