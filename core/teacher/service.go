package teacher

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
)

var (
	// errors
	ErrNotFound       = errors.New("teacher not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrInvalidCreds   = errors.New("invalid credentials")
	ErrInactive       = errors.New("account deactivated")
)

type (
	Repository interface {
		// CreateTeacher fails with ErrUsernameExists when the username is taken.
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, filter GetFilter) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	}

	ServiceInterface interface {
		Register(ctx context.Context, nt NewTeacher) (Teacher, error)
		Authenticate(ctx context.Context, username, pwd string) (Teacher, error)
		GetByID(ctx context.Context, id string) (Teacher, error)
		GetByUsername(ctx context.Context, username string) (Teacher, error)
		SetPassword(ctx context.Context, username, pwd string) (Teacher, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Register validates nt and creates an active Teacher.
func (svc *Service) Register(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return Teacher{}, err
	}

	t := Teacher{
		Username:  nt.Username,
		Name:      nt.Name,
		Email:     nt.Email,
		IsActive:  true,
		CreatedAt: core.NowUTC(),
	}
	if err := t.SetPassword(nt.Password); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}

	t, err := svc.repo.CreateTeacher(ctx, t)
	if err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return Teacher{}, core.NewFieldError("username", ErrUsernameExists.Error())
		}
		return Teacher{}, errors.Wrap(err, "creating teacher")
	}
	return t, nil
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, username, pwd string) (Teacher, error) {
	t, err := svc.GetByUsername(ctx, username)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Teacher{}, ErrInvalidCreds
		}
		return Teacher{}, errors.Wrap(err, "finding teacher by username")
	}
	if err = t.CheckPassword(pwd); err != nil {
		return Teacher{}, ErrInvalidCreds
	}
	if !t.IsActive {
		return Teacher{}, ErrInactive
	}

	t.LastLogin = core.NowUTC()
	t, err = svc.repo.UpdateTeacher(ctx, t)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "setting lastLogin")
	}
	return t, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, username string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{Username: core.CleanString(username, true /* lower */)})
}

// SetPassword replaces the password of the teacher with the given username, bypassing the password policy.
func (svc *Service) SetPassword(ctx context.Context, username, pwd string) (Teacher, error) {
	t, err := svc.GetByUsername(ctx, username)
	if err != nil {
		return Teacher{}, err
	}
	if err = t.SetPassword(pwd); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateTeacher(ctx, t)
}
