package teacher_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/teacher"
	inmemdb "github.com/trezcool/eduapp/storage/database/inmem"
	"github.com/trezcool/eduapp/tests"
)

const pwd = "S3cure!pass"

func setup(t *testing.T) (*teacher.Service, teacher.Repository) {
	t.Helper()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)

	repo := inmemdb.NewTeacherRepository(inmemdb.Open())
	return teacher.NewService(repo, validate), repo
}

func TestService_Register(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	testutil.CreateTeacher(t, repo, "Taken", "taken", pwd, true)

	tests := []struct {
		name     string
		nt       teacher.NewTeacher
		wantFlds []string // fields in error
	}{
		{name: "required fields", nt: teacher.NewTeacher{}, wantFlds: []string{"username", "password"}},
		{name: "username too short", nt: teacher.NewTeacher{Username: "ab", Password: pwd}, wantFlds: []string{"username"}},
		{name: "username format", nt: teacher.NewTeacher{Username: "ana-maria", Password: pwd}, wantFlds: []string{"username"}},
		{name: "invalid email", nt: teacher.NewTeacher{Username: "ana", Email: "ana@", Password: pwd}, wantFlds: []string{"email"}},
		{name: "weak password", nt: teacher.NewTeacher{Username: "ana", Password: "12345678"}, wantFlds: []string{"password"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.nt)
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "error = %v", err)

			flds := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				flds = append(flds, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFlds, flds)
		})
	}

	t.Run("username taken", func(t *testing.T) {
		_, err := svc.Register(ctx, teacher.NewTeacher{Username: " TAKEN ", Password: pwd})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr), "error = %v", err)
		assert.Equal(t, []core.FieldError{{Field: "username", Error: "username already exists"}}, verr.Fields)
	})

	t.Run("registered", func(t *testing.T) {
		tchr, err := svc.Register(ctx, teacher.NewTeacher{
			Username: " Ana ",
			Name:     " Ana Lopez ",
			Email:    "ANA@school.test",
			Password: pwd,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, tchr.ID)
		assert.Equal(t, "ana", tchr.Username)
		assert.Equal(t, "Ana Lopez", tchr.Name)
		assert.Equal(t, "ana@school.test", tchr.Email)
		assert.True(t, tchr.IsActive)
		assert.False(t, tchr.CreatedAt.IsZero())
		assert.True(t, tchr.LastLogin.IsZero())
		assert.NoError(t, tchr.CheckPassword(pwd))
	})
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	ana := testutil.CreateTeacher(t, repo, "Ana", "ana", pwd, true)
	testutil.CreateTeacher(t, repo, "Bob", "bob", pwd, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown username", uname: "nobody", pwd: pwd, wantErr: teacher.ErrInvalidCreds},
		{name: "wrong password", uname: "ana", pwd: "wrong", wantErr: teacher.ErrInvalidCreds},
		{name: "inactive", uname: "bob", pwd: pwd, wantErr: teacher.ErrInactive},
		{name: "inactive with wrong password", uname: "bob", pwd: "wrong", wantErr: teacher.ErrInvalidCreds},
		{name: "ok", uname: " ANA ", pwd: pwd},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tchr, err := svc.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ana.ID, tchr.ID)
			assert.False(t, tchr.LastLogin.IsZero())
		})
	}

	stored, err := svc.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.False(t, stored.LastLogin.IsZero())
}

func TestService_SetPassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	testutil.CreateTeacher(t, repo, "Ana", "ana", pwd, true)

	_, err := svc.SetPassword(ctx, "nobody", "whatever")
	assert.Equal(t, teacher.ErrNotFound, errors.Cause(err))

	_, err = svc.SetPassword(ctx, "Ana", "1234")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ana", pwd)
	assert.Equal(t, teacher.ErrInvalidCreds, errors.Cause(err))
	_, err = svc.Authenticate(ctx, "ana", "1234")
	assert.NoError(t, err)
}
