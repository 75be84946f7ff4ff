package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/eduapp/apps/api/echo"
	"github.com/trezcool/eduapp/core/teacher"
	"github.com/trezcool/eduapp/tests"
)

const pwd = "S3cure!pass"

func Test_home(t *testing.T) {
	app := setup(t, nil)

	rec := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to EduApp API!", rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func Test_teacherApi_register(t *testing.T) {
	app := setup(t, nil)
	testutil.CreateTeacher(t, app.teachers, "Taken", "taken", pwd, true)

	app.run(t, []httpTest{
		{
			name: "username required", method: http.MethodPost, path: "/api/register",
			body:     map[string]string{"password": pwd},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"username": "this field is required"},
		},
		{
			name: "password required", method: http.MethodPost, path: "/api/register",
			body:     map[string]string{"username": "ana"},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"password": "this field is required"},
		},
		{
			name: "username format", method: http.MethodPost, path: "/api/register",
			body:     map[string]string{"username": "ana maria", "password": pwd},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"username": "only alphanumeric characters and underscores are allowed"},
		},
		{
			name: "password too short", method: http.MethodPost, path: "/api/register",
			body:     map[string]string{"username": "ana", "password": "s3cr!t"},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"password": "password must contain at least 8 characters"},
		},
		{
			name: "password all numeric", method: http.MethodPost, path: "/api/register",
			body:     map[string]string{"username": "ana", "password": "1234567890"},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"password": "password cannot be entirely numeric"},
		},
		{
			name: "password similar to username", method: http.MethodPost, path: "/api/register",
			body:     map[string]string{"username": "anastasia", "password": "Anastasia1"},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"password": "password cannot be similar to the username or name"},
		},
		{
			name: "username taken", method: http.MethodPost, path: "/api/register",
			body:     map[string]string{"username": "TAKEN", "password": pwd},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"username": "username already exists"},
		},
	})

	t.Run("registered", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/register", "", map[string]string{
			"username": " Ana ",
			"name":     "Ana Lopez",
			"email":    "ana@school.test",
			"password": pwd,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.RegisterResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Teacher registered successfully", resp.Message)
		assert.NotEmpty(t, resp.ID)

		rec = app.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "ana", "password": pwd})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func Test_teacherApi_login(t *testing.T) {
	app := setup(t, nil)
	ana := testutil.CreateTeacher(t, app.teachers, "Ana", "ana", pwd, true)
	testutil.CreateTeacher(t, app.teachers, "Bob", "bob", pwd, false)

	app.run(t, []httpTest{
		{
			name: "credentials required", method: http.MethodPost, path: "/api/login", body: map[string]string{},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"username": "this field is required", "password": "this field is required"},
		},
		{
			name: "unknown username", method: http.MethodPost, path: "/api/login",
			body:     map[string]string{"username": "nobody", "password": pwd},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "invalid credentials"},
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/login",
			body:     map[string]string{"username": "ana", "password": "wrong-password"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "invalid credentials"},
		},
		{
			name: "inactive teacher", method: http.MethodPost, path: "/api/login",
			body:     map[string]string{"username": "bob", "password": pwd},
			wantCode: http.StatusForbidden, wantData: httpErr{Error: "account deactivated"},
		},
	})

	t.Run("logged in", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": " ANA ", "password": pwd})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, echoapi.TeacherInfo{ID: ana.ID, Username: "ana", Name: "Ana"}, resp.Teacher)

		// the token is usable right away
		rec = app.do(t, http.MethodGet, "/api/protected", resp.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		tchr, err := app.teachers.GetTeacher(context.Background(), teacher.GetFilter{ID: ana.ID})
		require.NoError(t, err)
		assert.False(t, tchr.LastLogin.IsZero())
	})
}

func Test_teacherApi_protected(t *testing.T) {
	app := setup(t, nil)
	ana := testutil.CreateTeacher(t, app.teachers, "Ana", "ana", pwd, true)
	bob := testutil.CreateTeacher(t, app.teachers, "Bob", "bob", pwd, false)

	app.run(t, []httpTest{
		{name: "auth required", path: "/api/protected", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{
			name: "invalid token", path: "/api/protected", token: "not.a.token",
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "inactive teacher", path: "/api/protected", token: app.token(t, bob),
			wantCode: http.StatusForbidden, wantData: httpErr{Error: "account deactivated"},
		},
	})

	t.Run("ok", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/protected", app.token(t, ana), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Message string         `json:"message"`
			User    echoapi.Claims `json:"user"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, "This is a protected route", resp.Message)
		assert.Equal(t, ana.ID, resp.User.Subject)
		assert.Equal(t, "ana", resp.User.Username)
	})
}

func Test_teacherApi_refreshToken(t *testing.T) {
	app := setup(t, nil)
	ana := testutil.CreateTeacher(t, app.teachers, "Ana", "ana", pwd, true)
	bob := testutil.CreateTeacher(t, app.teachers, "Bob", "bob", pwd, false)

	expired := time.Now().Add(-2 * app.conf.Server.JWTRefreshExpirationDelta).Unix()

	app.run(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/token-refresh",
			wantCode: http.StatusUnauthorized, wantData: errMissingToken,
		},
		{
			name: "inactive teacher", method: http.MethodPost, path: "/api/token-refresh", token: app.token(t, bob),
			wantCode: http.StatusForbidden, wantData: httpErr{Error: "account deactivated"},
		},
		{
			name: "refresh period expired", method: http.MethodPost, path: "/api/token-refresh", token: app.token(t, ana, expired),
			wantCode: http.StatusForbidden, wantData: httpErr{Error: "refresh has expired"},
		},
	})

	t.Run("refreshed", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/token-refresh", app.token(t, ana), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.TokenResponse
		decode(t, rec, &resp)
		require.NotEmpty(t, resp.Token)

		rec = app.do(t, http.MethodGet, "/api/protected", resp.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
