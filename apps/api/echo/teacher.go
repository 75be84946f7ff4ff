package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core/teacher"
)

type teacherApi struct {
	svc      teacher.ServiceInterface
	auth     *authenticator
	validate *validator.Validate
}

func registerTeacherAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	ctxTeacher echo.MiddlewareFunc,
	auth *authenticator,
	svc teacher.ServiceInterface,
	validate *validator.Validate,
) {
	api := teacherApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}

	// un-authed endpoints
	g.POST("/register", api.register)
	g.POST("/login", api.login)

	// authed endpoints
	ag := g.Group("", jwt, ctxTeacher)
	ag.GET("/protected", api.protected)
	ag.POST("/token-refresh", api.refreshToken)
}

// Handlers

func (api *teacherApi) register(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}

	tchr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{Message: "Teacher registered successfully", ID: tchr.ID})
}

func (api *teacherApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tchr, token, err := api.auth.login(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		Teacher: TeacherInfo{ID: tchr.ID, Username: tchr.Username, Name: tchr.Name},
	})
}

func (api *teacherApi) protected(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "This is a protected route", "user": claims})
}

func (api *teacherApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}
