// Package storage opens the repositories of the configured engine.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	"github.com/trezcool/eduapp/storage/database"
	inmemdb "github.com/trezcool/eduapp/storage/database/inmem"
	mongorepos "github.com/trezcool/eduapp/storage/database/mongo"
	sqlxrepos "github.com/trezcool/eduapp/storage/database/sqlx"
)

// Handle holds the repositories of one storage engine.
type Handle struct {
	Engine     string
	Teachers   teacher.Repository
	Attendance attendance.Storage

	// SQL is set for the postgres and sqlite engines only.
	SQL   *sqlx.DB
	close func(ctx context.Context) error
}

// Open connects to conf.Database.Engine. SQL databases are created and migrated when migrate is true.
func Open(ctx context.Context, conf *core.Config, logger core.Logger, migrate bool) (*Handle, error) {
	h := &Handle{Engine: conf.Database.Engine}

	switch conf.Database.Engine {
	case core.EngineMemory:
		db := inmemdb.Open()
		h.Teachers = inmemdb.NewTeacherRepository(db)
		h.Attendance = inmemdb.NewAttendanceRepository(db)
		h.close = func(context.Context) error { return nil }

	case core.EnginePostgres, core.EngineSQLite:
		if migrate {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err = database.Migrate(db, conf.Database.Engine); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		h.SQL = db
		h.Teachers = sqlxrepos.NewTeacherRepository(db)
		h.Attendance = sqlxrepos.NewAttendanceRepository(db)
		h.close = func(context.Context) error { return db.Close() }

	case core.EngineMongoDB:
		db, err := mongorepos.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		h.Teachers = mongorepos.NewTeacherRepository(db)
		h.Attendance = mongorepos.NewAttendanceRepository(db)
		h.close = func(ctx context.Context) error { return db.Client().Disconnect(ctx) }

	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	logger.Info("storage opened", map[string]interface{}{"engine": h.Engine})
	return h, nil
}

func (h *Handle) Close(ctx context.Context) error {
	if err := h.close(ctx); err != nil {
		return errors.Wrap(err, "closing storage")
	}
	return nil
}
