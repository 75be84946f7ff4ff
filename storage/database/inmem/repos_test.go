package inmemdb_test

import (
	"testing"

	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	inmemdb "github.com/trezcool/eduapp/storage/database/inmem"
	"github.com/trezcool/eduapp/tests"
)

func TestRepositories(t *testing.T) {
	testutil.RunStorageTests(t, func(t *testing.T) (teacher.Repository, attendance.Storage) {
		db := inmemdb.Open()
		return inmemdb.NewTeacherRepository(db), inmemdb.NewAttendanceRepository(db)
	})
}
