package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusattend/internal/logging"
)

// Collection names.
const (
	StudentsCollection = "students"
	CoursesCollection  = "courses"
	RecordsCollection  = "attendance_records"
	UsersCollection    = "users"
)

// ErrDuplicate is returned when a write violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

// Repository persists students, courses, attendance records and users in MongoDB.
//
// Lookups, updates and deletes accept either id scheme: the external "id" field
// is tried first and the native ObjectID second, because documents written before
// the external id convention only carry "_id".
type Repository struct {
	students *mongo.Collection
	courses  *mongo.Collection
	records  *mongo.Collection
	users    *mongo.Collection
	now      func() time.Time
}

// NewRepository creates a repo.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		students: db.Collection(StudentsCollection),
		courses:  db.Collection(CoursesCollection),
		records:  db.Collection(RecordsCollection),
		users:    db.Collection(UsersCollection),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the indexes the collections rely on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{r.students, []mongo.IndexModel{
			{Keys: bson.D{{Key: "studentId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "id", Value: 1}}},
		}},
		{r.courses, []mongo.IndexModel{
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "id", Value: 1}}},
		}},
		{r.records, []mongo.IndexModel{
			{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "id", Value: 1}}},
		}},
		{r.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

// ---------- Students ----------

// CreateStudent inserts a student and returns it with both ids set.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if err := insert(ctx, r.students, &s, r.now()); err != nil {
		return Student{}, fmt.Errorf("create student: %w", err)
	}
	return s, nil
}

// ListStudents returns all students.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	out, err := list[Student](ctx, r.students, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

// GetStudent returns nil when no student matches id under either id scheme.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Student, error) {
	s, err := findByID[Student](ctx, r.students, id)
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", id, err)
	}
	return s, nil
}

// UpdateStudent merges patch into the student and reports whether it existed.
func (r *Repository) UpdateStudent(ctx context.Context, id string, patch StudentPatch) (bool, error) {
	ok, err := updateByID(ctx, r.students, id, patch.fields(), r.now())
	if err != nil {
		return false, fmt.Errorf("update student %s: %w", id, err)
	}
	return ok, nil
}

// DeleteStudent removes the student. Course rosters and records keep their references.
func (r *Repository) DeleteStudent(ctx context.Context, id string) (bool, error) {
	ok, err := deleteByID(ctx, r.students, id)
	if err != nil {
		return false, fmt.Errorf("delete student %s: %w", id, err)
	}
	return ok, nil
}

// ---------- Courses ----------

// CreateCourse inserts a course.
func (r *Repository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if err := insert(ctx, r.courses, &c, r.now()); err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

// ListCourses returns all courses.
func (r *Repository) ListCourses(ctx context.Context) ([]Course, error) {
	out, err := list[Course](ctx, r.courses, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return out, nil
}

// GetCourse returns nil when no course matches id.
func (r *Repository) GetCourse(ctx context.Context, id string) (*Course, error) {
	c, err := findByID[Course](ctx, r.courses, id)
	if err != nil {
		return nil, fmt.Errorf("get course %s: %w", id, err)
	}
	return c, nil
}

// UpdateCourse merges patch into the course.
func (r *Repository) UpdateCourse(ctx context.Context, id string, patch CoursePatch) (bool, error) {
	ok, err := updateByID(ctx, r.courses, id, patch.fields(), r.now())
	if err != nil {
		return false, fmt.Errorf("update course %s: %w", id, err)
	}
	return ok, nil
}

// DeleteCourse removes the course document only. Attendance records of the
// course stay in place.
func (r *Repository) DeleteCourse(ctx context.Context, id string) (bool, error) {
	ok, err := deleteByID(ctx, r.courses, id)
	if err != nil {
		return false, fmt.Errorf("delete course %s: %w", id, err)
	}
	if ok {
		logging.FromContext(ctx).Warn("course deleted without cascading to attendance records", "course_id", id)
	}
	return ok, nil
}

// ---------- Attendance records ----------

// CreateRecord inserts an attendance record.
func (r *Repository) CreateRecord(ctx context.Context, rec Record) (Record, error) {
	if err := insert(ctx, r.records, &rec, r.now()); err != nil {
		return Record{}, fmt.Errorf("create attendance record: %w", err)
	}
	return rec, nil
}

// ListRecords returns every attendance record.
func (r *Repository) ListRecords(ctx context.Context) ([]Record, error) {
	out, err := list[Record](ctx, r.records, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return out, nil
}

// ListRecordsByCourse returns the records of one course.
func (r *Repository) ListRecordsByCourse(ctx context.Context, courseID string) ([]Record, error) {
	out, err := list[Record](ctx, r.records, bson.M{"courseId": courseID})
	if err != nil {
		return nil, fmt.Errorf("list attendance records of course %s: %w", courseID, err)
	}
	return out, nil
}

// GetRecordByDate returns the first record of a course on date, or nil.
func (r *Repository) GetRecordByDate(ctx context.Context, courseID, date string) (*Record, error) {
	rec, err := findOne[Record](ctx, r.records, bson.M{"courseId": courseID, "date": date})
	if err != nil {
		return nil, fmt.Errorf("get attendance record %s/%s: %w", courseID, date, err)
	}
	return rec, nil
}

// GetRecord returns nil when no record matches id.
func (r *Repository) GetRecord(ctx context.Context, id string) (*Record, error) {
	rec, err := findByID[Record](ctx, r.records, id)
	if err != nil {
		return nil, fmt.Errorf("get attendance record %s: %w", id, err)
	}
	return rec, nil
}

// UpdateRecord merges patch into the record.
func (r *Repository) UpdateRecord(ctx context.Context, id string, patch RecordPatch) (bool, error) {
	ok, err := updateByID(ctx, r.records, id, patch.fields(), r.now())
	if err != nil {
		return false, fmt.Errorf("update attendance record %s: %w", id, err)
	}
	return ok, nil
}

// DeleteRecord removes the record.
func (r *Repository) DeleteRecord(ctx context.Context, id string) (bool, error) {
	ok, err := deleteByID(ctx, r.records, id)
	if err != nil {
		return false, fmt.Errorf("delete attendance record %s: %w", id, err)
	}
	return ok, nil
}

// ---------- Users ----------

// CreateUser inserts a user; ErrDuplicate when the username is taken.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	now := r.now()
	u.NativeID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := r.users.InsertOne(ctx, u); err != nil {
		return User{}, fmt.Errorf("create user: %w", writeErr(err))
	}
	return u, nil
}

// GetUserByUsername returns nil when the user does not exist.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &u, nil
}

// ---------- helpers ----------

type document[T any] interface {
	*T
	entity
}

// backfillView fills the external id from the native id for legacy documents.
func backfillView(e entity) {
	if e.externalID() == "" && !e.nativeID().IsZero() {
		e.setExternalID(e.nativeID().Hex())
	}
}

func insert(ctx context.Context, coll *mongo.Collection, doc entity, now time.Time) error {
	doc.setNativeID(primitive.NewObjectID())
	if doc.externalID() == "" {
		doc.setExternalID(doc.nativeID().Hex())
	}
	doc.stamp(now)
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return writeErr(err)
	}
	return nil
}

func list[T any, P document[T]](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]T, error) {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		backfillView(P(&out[i]))
	}
	return out, nil
}

func findOne[T any, P document[T]](ctx context.Context, coll *mongo.Collection, filter bson.M) (P, error) {
	var doc T
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := P(&doc)
	backfillView(p)
	return p, nil
}

// findByID looks up by external id, then by native id. A native-id hit on a
// document without an external id writes the id back so the next lookup
// takes the first path.
func findByID[T any, P document[T]](ctx context.Context, coll *mongo.Collection, id string) (P, error) {
	if doc, err := findOne[T, P](ctx, coll, bson.M{"id": id}); err != nil || doc != nil {
		return doc, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc T
	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := P(&doc)
	if p.externalID() == "" {
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"id": id}}); err != nil {
			logging.FromContext(ctx).Warn("external id backfill failed", "collection", coll.Name(), "id", id, "error", err)
		}
		p.setExternalID(id)
	}
	return p, nil
}

// updateByID applies set keyed by external id, falling back to the native id
// when nothing matched. The fallback also stamps the external id.
func updateByID(ctx context.Context, coll *mongo.Collection, id string, set bson.M, now time.Time) (bool, error) {
	delete(set, "_id")
	delete(set, "createdAt")
	set["updatedAt"] = now

	res, err := coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return false, writeErr(err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	fallback := make(bson.M, len(set)+1)
	for k, v := range set {
		fallback[k] = v
	}
	fallback["id"] = id
	res, err = coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fallback})
	if err != nil {
		return false, writeErr(err)
	}
	return res.MatchedCount > 0, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) (bool, error) {
	res, err := coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, err
	}
	if res.DeletedCount > 0 {
		return true, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err = coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func writeErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
