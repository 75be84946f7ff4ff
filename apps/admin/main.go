package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	logsvc "github.com/trezcool/eduapp/services/logger"
	"github.com/trezcool/eduapp/storage"
	"github.com/trezcool/eduapp/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal("creating database", err)
	}
	store, err := storage.Open(ctx, conf, logger, false /* migrate */)
	cancel()
	if err != nil {
		logger.Fatal("opening storage", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		engine:     conf.Database.Engine,
		db:         store.SQL,
		teachers:   teacher.NewService(store.Teachers, validate),
		attendance: attendance.NewService(store.Attendance, logger, validate, conf),
		store:      store.Attendance,
		translator: translator,
		in:         os.Stdin,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if cerr := store.Close(closeCtx); cerr != nil {
		logger.Error("closing storage", cerr)
	}

	if err != nil {
		if err != errHelp {
			logger.Error(cli.describe(err))
		}
		os.Exit(1)
	}
}
