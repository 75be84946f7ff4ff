package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
)

type (
	yearDoc struct {
		ID        string    `bson:"_id"`
		Name      string    `bson:"name"`
		CreatedAt time.Time `bson:"created_at"`
	}

	studentDoc struct {
		ID        string    `bson:"_id"`
		Name      string    `bson:"name"`
		StudentID string    `bson:"student_id"`
		YearID    string    `bson:"year_id"`
		CreatedAt time.Time `bson:"created_at"`
	}

	subjectDoc struct {
		ID        string    `bson:"_id"`
		Name      string    `bson:"name"`
		TeacherID string    `bson:"teacher_id"`
		YearID    *string   `bson:"year_id,omitempty"`
		CreatedAt time.Time `bson:"created_at"`
	}

	recordDoc struct {
		ID        string    `bson:"_id"`
		SubjectID string    `bson:"subject_id"`
		StudentID string    `bson:"student_id"`
		Status    string    `bson:"status"`
		Timestamp time.Time `bson:"timestamp"`
	}
)

func (doc yearDoc) toYear() attendance.Year {
	return attendance.Year{ID: doc.ID, Name: doc.Name, CreatedAt: doc.CreatedAt.UTC()}
}

func (doc studentDoc) toStudent() attendance.Student {
	return attendance.Student{ID: doc.ID, Name: doc.Name, StudentID: doc.StudentID, YearID: doc.YearID, CreatedAt: doc.CreatedAt.UTC()}
}

func newSubjectDoc(s attendance.Subject) subjectDoc {
	doc := subjectDoc{ID: s.ID, Name: s.Name, TeacherID: s.TeacherID, CreatedAt: s.CreatedAt}
	if s.YearID.Valid {
		yearID := s.YearID.String
		doc.YearID = &yearID
	}
	return doc
}

func (doc subjectDoc) toSubject() attendance.Subject {
	s := attendance.Subject{ID: doc.ID, Name: doc.Name, TeacherID: doc.TeacherID, CreatedAt: doc.CreatedAt.UTC()}
	if doc.YearID != nil {
		s.YearID.SetValid(*doc.YearID)
	}
	return s
}

func (doc recordDoc) toRecord() attendance.Record {
	return attendance.Record{
		ID:        doc.ID,
		SubjectID: doc.SubjectID,
		StudentID: doc.StudentID,
		Status:    attendance.Status(doc.Status),
		Timestamp: doc.Timestamp.UTC(),
	}
}

// bsonTime truncates t to the BSON datetime precision.
func bsonTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type attendanceRepository struct {
	years      *mongo.Collection
	students   *mongo.Collection
	subjects   *mongo.Collection
	attendance *mongo.Collection
}

func NewAttendanceRepository(db *mongo.Database) attendance.Storage {
	return &attendanceRepository{
		years:      db.Collection(yearsColl),
		students:   db.Collection(studentsColl),
		subjects:   db.Collection(subjectsColl),
		attendance: db.Collection(attendanceColl),
	}
}

// Years

func (repo *attendanceRepository) FindYear(ctx context.Context, id string) (attendance.Year, error) {
	var doc yearDoc
	if err := repo.years.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return attendance.Year{}, attendance.ErrYearNotFound
		}
		return attendance.Year{}, errors.Wrap(err, "finding year")
	}
	return doc.toYear(), nil
}

func (repo *attendanceRepository) QueryYears(ctx context.Context) ([]attendance.Year, error) {
	cur, err := repo.years.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "finding years")
	}
	var docs []yearDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding years")
	}
	years := make([]attendance.Year, 0, len(docs))
	for _, doc := range docs {
		years = append(years, doc.toYear())
	}
	return years, nil
}

func (repo *attendanceRepository) CreateYear(ctx context.Context, y attendance.Year) (attendance.Year, error) {
	doc := yearDoc{ID: uuid.NewString(), Name: y.Name, CreatedAt: bsonTime(y.CreatedAt)}
	if _, err := repo.years.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return attendance.Year{}, attendance.ErrYearExists
		}
		return attendance.Year{}, errors.Wrap(err, "inserting year")
	}
	return doc.toYear(), nil
}

// Students

func (repo *attendanceRepository) FindStudentsByYear(ctx context.Context, yearID string) ([]attendance.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "student_id", Value: 1}})
	cur, err := repo.students.Find(ctx, bson.M{"year_id": yearID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding students")
	}
	var docs []studentDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding students")
	}
	students := make([]attendance.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.toStudent())
	}
	return students, nil
}

func (repo *attendanceRepository) CreateStudent(ctx context.Context, s attendance.Student) (attendance.Student, error) {
	doc := studentDoc{
		ID:        uuid.NewString(),
		Name:      s.Name,
		StudentID: s.StudentID,
		YearID:    s.YearID,
		CreatedAt: bsonTime(s.CreatedAt),
	}
	if _, err := repo.students.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return attendance.Student{}, attendance.ErrStudentExists
		}
		return attendance.Student{}, errors.Wrap(err, "inserting student")
	}
	return doc.toStudent(), nil
}

// Subjects

func (repo *attendanceRepository) FindSubject(ctx context.Context, id string) (attendance.Subject, error) {
	var doc subjectDoc
	if err := repo.subjects.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return attendance.Subject{}, attendance.ErrSubjectNotFound
		}
		return attendance.Subject{}, errors.Wrap(err, "finding subject")
	}
	return doc.toSubject(), nil
}

func (repo *attendanceRepository) QuerySubjects(ctx context.Context, filter attendance.SubjectFilter, ordering []core.DBOrdering) ([]attendance.Subject, error) {
	q := bson.M{}
	if filter.TeacherID != "" {
		q["teacher_id"] = filter.TeacherID
	}
	if filter.YearID != "" {
		q["year_id"] = filter.YearID
	}

	ordering = core.CleanOrderings(ordering, attendance.SubjectOrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort := make(bson.D, 0, len(ordering))
	for _, ord := range ordering {
		direction := -1
		if ord.Ascending {
			direction = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: direction})
	}

	cur, err := repo.subjects.Find(ctx, q, options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Wrap(err, "finding subjects")
	}
	var docs []subjectDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding subjects")
	}
	subjects := make([]attendance.Subject, 0, len(docs))
	for _, doc := range docs {
		subjects = append(subjects, doc.toSubject())
	}
	return subjects, nil
}

func (repo *attendanceRepository) CreateSubject(ctx context.Context, s attendance.Subject) (attendance.Subject, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = bsonTime(s.CreatedAt)
	doc := newSubjectDoc(s)
	if _, err := repo.subjects.InsertOne(ctx, doc); err != nil {
		return attendance.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return doc.toSubject(), nil
}

// DeleteSubject removes the subject before its records: an interrupted deletion leaves
// orphan records that no roster can reach.
func (repo *attendanceRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.subjects.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if res.DeletedCount == 0 {
		return attendance.ErrSubjectNotFound
	}
	if _, err = repo.attendance.DeleteMany(ctx, bson.M{"subject_id": id}); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return nil
}

// Attendance

func (repo *attendanceRepository) FindAttendanceBySubject(ctx context.Context, subjectID string) ([]attendance.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "student_id", Value: 1}})
	cur, err := repo.attendance.Find(ctx, bson.M{"subject_id": subjectID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding attendance")
	}
	var docs []recordDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding attendance")
	}
	records := make([]attendance.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.toRecord())
	}
	return records, nil
}

func (repo *attendanceRepository) InsertAttendance(ctx context.Context, subjectID, studentKey string, at time.Time) (attendance.Record, error) {
	n, err := repo.subjects.CountDocuments(ctx, bson.M{"_id": subjectID}, options.Count().SetLimit(1))
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "counting subjects")
	}
	if n == 0 {
		return attendance.Record{}, attendance.ErrSubjectNotFound
	}

	doc := recordDoc{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		StudentID: studentKey,
		Status:    string(attendance.StatusPresent),
		Timestamp: bsonTime(at),
	}
	if _, err = repo.attendance.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return attendance.Record{}, attendance.ErrConflict
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance")
	}
	return doc.toRecord(), nil
}

func (repo *attendanceRepository) DeleteAttendanceBySubject(ctx context.Context, subjectID string) (int, error) {
	res, err := repo.attendance.DeleteMany(ctx, bson.M{"subject_id": subjectID})
	if err != nil {
		return 0, errors.Wrap(err, "deleting attendance")
	}
	return int(res.DeletedCount), nil
}
