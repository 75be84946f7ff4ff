package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/eduapp/core/teacher"
)

type teacherRepository struct {
	db *DB
}

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CreateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.teachers {
		if other.Username == t.Username {
			return teacher.Teacher{}, teacher.ErrUsernameExists
		}
	}
	t.ID = uuid.NewString()
	repo.db.teachers[t.ID] = &t
	return t, nil
}

func (repo *teacherRepository) GetTeacher(_ context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.teachers[filter.ID]; ok {
			return *t, nil
		}
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if filter.Username != "" {
		for _, t := range repo.db.teachers {
			if t.Username == filter.Username {
				return *t, nil
			}
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) UpdateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.teachers[t.ID]
	if !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	for _, other := range repo.db.teachers {
		if other.ID != t.ID && other.Username == t.Username {
			return teacher.Teacher{}, teacher.ErrUsernameExists
		}
	}

	// only save set fields
	if t.PasswordHash != nil {
		orig.PasswordHash = t.PasswordHash
	}
	orig.Username = t.Username
	orig.Name = t.Name
	orig.Email = t.Email
	orig.IsActive = t.IsActive
	orig.LastLogin = t.LastLogin
	return *orig, nil
}
