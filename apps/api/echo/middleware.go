package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core/teacher"
)

// teacherMiddleware loads the active teacher identified by the JWT claims into the context.
func teacherMiddleware(svc teacher.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			tchr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == teacher.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding teacher by ID")
			}
			if !tchr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextTeacherKey, tchr)
			return next(ctx)
		}
	}
}
