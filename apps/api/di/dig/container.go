package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/eduapp/apps/api/echo"
	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	emailsvc "github.com/trezcool/eduapp/services/email"
	logsvc "github.com/trezcool/eduapp/services/logger"
	"github.com/trezcool/eduapp/storage"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	TeacherSvc    teacher.ServiceInterface
	AttendanceSvc *attendance.Service
	MailSvc       core.EmailService
	Validate      *validator.Validate
	Translator    ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newStorage opens, creates & migrates the configured storage engine.
func newStorage(conf *core.Config, loggerParam DBLoggerParam) (*storage.Handle, teacher.Repository, attendance.Storage) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, conf, loggerParam.Logger, true /* migrate */)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	return store, store.Teachers, store.Attendance
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "", 0), logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		TeacherSvc:    p.TeacherSvc,
		AttendanceSvc: p.AttendanceSvc,
		MailSvc:       p.MailSvc,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(teacher.NewService, dig.As(new(teacher.ServiceInterface))))
	must(c.Provide(attendance.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
