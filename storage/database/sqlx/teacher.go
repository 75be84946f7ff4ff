package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduapp/core/teacher"
)

type teacherRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    null.Time `db:"created_at"`
	LastLogin    null.Time `db:"last_login"`
}

func newTeacherRow(t teacher.Teacher) teacherRow {
	return teacherRow{
		ID:           t.ID,
		Username:     t.Username,
		Name:         t.Name,
		Email:        t.Email,
		PasswordHash: string(t.PasswordHash),
		IsActive:     t.IsActive,
		CreatedAt:    null.TimeFrom(t.CreatedAt),
		LastLogin:    null.NewTime(t.LastLogin, !t.LastLogin.IsZero()),
	}
}

func (r teacherRow) toTeacher() teacher.Teacher {
	t := teacher.Teacher{
		ID:           r.ID,
		Username:     r.Username,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: []byte(r.PasswordHash),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.Time.UTC(),
	}
	if r.LastLogin.Valid {
		t.LastLogin = r.LastLogin.Time.UTC()
	}
	return t
}

const teacherColumns = "id, username, name, email, password_hash, is_active, created_at, last_login"

type teacherRepository struct {
	db *sqlx.DB
}

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.NewString()
	q := "INSERT INTO teachers (" + teacherColumns + ") " +
		"VALUES (:id, :username, :name, :email, :password_hash, :is_active, :created_at, :last_login)"
	if _, err := repo.db.NamedExecContext(ctx, q, newTeacherRow(t)); err != nil {
		if isUniqueViolation(err) {
			return teacher.Teacher{}, teacher.ErrUsernameExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	var (
		where string
		arg   string
	)
	switch {
	case filter.ID != "":
		where, arg = "id = ?", filter.ID
	case filter.Username != "":
		where, arg = "username = ?", filter.Username
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	var row teacherRow
	q := repo.db.Rebind("SELECT " + teacherColumns + " FROM teachers WHERE " + where)
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return teacher.Teacher{}, teacher.ErrNotFound
		}
		return teacher.Teacher{}, errors.Wrap(err, "selecting teacher")
	}
	return row.toTeacher(), nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	q := "UPDATE teachers SET username = :username, name = :name, email = :email, " +
		"password_hash = :password_hash, is_active = :is_active, last_login = :last_login WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, newTeacherRow(t))
	if err != nil {
		if isUniqueViolation(err) {
			return teacher.Teacher{}, teacher.ErrUsernameExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return repo.GetTeacher(ctx, teacher.GetFilter{ID: t.ID})
}
