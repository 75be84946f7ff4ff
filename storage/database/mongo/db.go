package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/eduapp/core"
)

// collections
const (
	teachersColl   = "teachers"
	yearsColl      = "years"
	studentsColl   = "students"
	subjectsColl   = "subjects"
	attendanceColl = "attendance"
)

// Open connects to the configured MongoDB deployment, then ensures the indexes of the app database.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	db := client.Database(conf.Database.Name)
	if err = EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return db, nil
}

// EnsureIndexes creates the indexes backing the uniqueness rules. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		teachersColl: {{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},
		yearsColl:    {{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique}},
		studentsColl: {{Keys: bson.D{{Key: "year_id", Value: 1}, {Key: "student_id", Value: 1}}, Options: unique}},
		subjectsColl: {{Keys: bson.D{{Key: "teacher_id", Value: 1}}}},
		attendanceColl: {
			{Keys: bson.D{{Key: "subject_id", Value: 1}, {Key: "student_id", Value: 1}}, Options: unique},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}
