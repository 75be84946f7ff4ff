package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/teacher"
)

var contextTeacherKey = "teacher"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
}

// NewClaims returns the claims of tchr. origIat is kept across token refreshes.
func NewClaims(tchr teacher.Teacher, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   tchr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     tchr.Username,
	}
}

// GenerateToken generates a signed JWT token string representing the teacher Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf      *core.Config
	svc       teacher.ServiceInterface
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, svc teacher.ServiceInterface) *authenticator {
	return &authenticator{
		conf: conf,
		svc:  svc,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(Claims),
		},
	}
}

func (a *authenticator) token(tchr teacher.Teacher, origIat ...int64) (string, error) {
	return GenerateToken(NewClaims(tchr, a.conf, origIat...), a.conf.SecretKey)
}

func (a *authenticator) login(ctx context.Context, uname, pwd string) (teacher.Teacher, string, error) {
	tchr, err := a.svc.Authenticate(ctx, uname, pwd)
	if err != nil {
		return teacher.Teacher{}, "", err
	}
	token, err := a.token(tchr)
	if err != nil {
		return teacher.Teacher{}, "", errors.Wrap(err, "generating token")
	}
	return tchr, token, nil
}

func (a *authenticator) refresh(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context teacher")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.token(tchr, claims.OrigIssuedAt)
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get("userToken").(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextTeacher returns the teacher loaded by teacherMiddleware.
func getContextTeacher(ctx echo.Context) (teacher.Teacher, error) {
	if tchr, ok := ctx.Get(contextTeacherKey).(teacher.Teacher); ok {
		return tchr, nil
	}
	return teacher.Teacher{}, errUnauthorized
}
