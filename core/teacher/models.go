package teacher

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/eduapp/core"
)

// Teacher owns subjects and runs attendance sessions.
type Teacher struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`           // UTC
	LastLogin    time.Time `json:"last_login,omitempty"` // UTC
}

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Teacher) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(pwd))
}

// NewTeacher contains information needed to register a new Teacher.
type NewTeacher struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Name     string `json:"name" validate:"max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Username = core.CleanString(nt.Username, true /* lower */)
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	return validate.Struct(nt)
}

// GetFilter selects a single Teacher. The first non-empty field wins.
type GetFilter struct {
	ID       string
	Username string
}
