package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "teacher not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, teacher.ErrInactive.Error())
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *attendance.StorageError:
			code = http.StatusServiceUnavailable
			message = "storage unavailable, please retry"
			logger.Error(origErr.Op, err, contextTeacher(ctx))
		default:
			switch origErr {
			case attendance.ErrSubjectNotFound, attendance.ErrYearNotFound, teacher.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case attendance.ErrUnauthorized, teacher.ErrInactive:
				code = http.StatusForbidden
				message = origErr.Error()
			case attendance.ErrConflict:
				code = http.StatusConflict
				message = origErr.Error()
			case teacher.ErrInvalidCreds:
				code = http.StatusBadRequest
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), contextTeacher(ctx))

				if ctx.Echo().Debug {
					message = err.Error()
				}

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// contextTeacher returns the authenticated teacher for logging, or the identity found in the claims.
func contextTeacher(ctx echo.Context) teacher.Teacher {
	if tchr, err := getContextTeacher(ctx); err == nil {
		return tchr
	}
	var tchr teacher.Teacher
	if claims, err := getContextClaims(ctx); err == nil {
		tchr.ID = claims.Subject
		tchr.Username = claims.Username
	}
	return tchr
}
