package mongorepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	mongorepos "github.com/trezcool/eduapp/storage/database/mongo"
	"github.com/trezcool/eduapp/tests"
)

// openDB connects to TEST_MONGODB_URI and returns a fresh database, dropped at the end of the test.
func openDB(t *testing.T) *mongo.Database {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo.Connect() failed: %v", err)
	}
	db := client.Database("eduapp_test_" + uuid.NewString()[:8])
	if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes() failed: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestRepositories(t *testing.T) {
	testutil.RunStorageTests(t, func(t *testing.T) (teacher.Repository, attendance.Storage) {
		db := openDB(t)
		return mongorepos.NewTeacherRepository(db), mongorepos.NewAttendanceRepository(db)
	})
}
