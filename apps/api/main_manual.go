package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/eduapp/apps/api/echo"
	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	emailsvc "github.com/trezcool/eduapp/services/email"
	logsvc "github.com/trezcool/eduapp/services/logger"
	"github.com/trezcool/eduapp/storage"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	store, err := openStorage(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err = store.Close(ctx); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "", 0), logger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	validate := validator.New()
	translator := core.NewTranslator()

	tchrSvc := teacher.NewService(store.Teachers, validate)
	attSvc := attendance.NewService(store.Attendance, logger, validate, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(store.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			TeacherSvc:    tchrSvc,
			AttendanceSvc: attSvc,
			MailSvc:       mailSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		shutdown(conf, logger, server)
	}
}

// openStorage opens the configured storage engine, creating and migrating SQL databases.
func openStorage(conf *core.Config, logger core.Logger) (*storage.Handle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return storage.Open(ctx, conf, logger, true /* migrate */)
}

// shutdown gives outstanding requests a deadline for completion, then forces the server to stop.
func shutdown(conf *core.Config, logger core.Logger, server *echoapi.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	// asking listener to shut down and shed load
	if err := server.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err = server.Close(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}
}
