package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/eduapp/core/teacher"
)

type teacherDoc struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email"`
	PasswordHash []byte     `bson:"password_hash"`
	IsActive     bool       `bson:"is_active"`
	CreatedAt    time.Time  `bson:"created_at"`
	LastLogin    *time.Time `bson:"last_login,omitempty"`
}

func newTeacherDoc(t teacher.Teacher) teacherDoc {
	doc := teacherDoc{
		ID:           t.ID,
		Username:     t.Username,
		Name:         t.Name,
		Email:        t.Email,
		PasswordHash: t.PasswordHash,
		IsActive:     t.IsActive,
		CreatedAt:    bsonTime(t.CreatedAt),
	}
	if !t.LastLogin.IsZero() {
		ll := bsonTime(t.LastLogin)
		doc.LastLogin = &ll
	}
	return doc
}

func (doc teacherDoc) toTeacher() teacher.Teacher {
	t := teacher.Teacher{
		ID:           doc.ID,
		Username:     doc.Username,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		IsActive:     doc.IsActive,
		CreatedAt:    doc.CreatedAt.UTC(),
	}
	if doc.LastLogin != nil {
		t.LastLogin = doc.LastLogin.UTC()
	}
	return t
}

type teacherRepository struct {
	coll *mongo.Collection
}

func NewTeacherRepository(db *mongo.Database) teacher.Repository {
	return &teacherRepository{coll: db.Collection(teachersColl)}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.NewString()
	doc := newTeacherDoc(t)
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return teacher.Teacher{}, teacher.ErrUsernameExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return doc.toTeacher(), nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	var q bson.M
	switch {
	case filter.ID != "":
		q = bson.M{"_id": filter.ID}
	case filter.Username != "":
		q = bson.M{"username": filter.Username}
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	var doc teacherDoc
	if err := repo.coll.FindOne(ctx, q).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return teacher.Teacher{}, teacher.ErrNotFound
		}
		return teacher.Teacher{}, errors.Wrap(err, "finding teacher")
	}
	return doc.toTeacher(), nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	doc := newTeacherDoc(t)
	set := bson.M{
		"username":      doc.Username,
		"name":          doc.Name,
		"email":         doc.Email,
		"password_hash": doc.PasswordHash,
		"is_active":     doc.IsActive,
	}
	update := bson.M{"$set": set}
	if doc.LastLogin != nil {
		set["last_login"] = *doc.LastLogin
	} else {
		update["$unset"] = bson.M{"last_login": ""}
	}

	res, err := repo.coll.UpdateByID(ctx, t.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return teacher.Teacher{}, teacher.ErrUsernameExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if res.MatchedCount == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return repo.GetTeacher(ctx, teacher.GetFilter{ID: t.ID})
}
