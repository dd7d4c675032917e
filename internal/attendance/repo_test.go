package attendance

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "iiit_attendance.students"

func commandsNamed(mt *mtest.T, name string) []bson.Raw {
	var out []bson.Raw
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == name {
			out = append(out, evt.Command)
		}
	}
	return out
}

func TestGetStudentByExternalID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("fast path", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "id", Value: "stu-1"},
			{Key: "name", Value: "Asha"},
		}))

		repo := NewRepository(mt.DB)
		s, err := repo.GetStudent(context.Background(), "stu-1")
		if err != nil {
			mt.Fatalf("get: %v", err)
		}
		if s == nil || s.ID != "stu-1" || s.Name != "Asha" || s.NativeID != oid {
			mt.Fatalf("unexpected student %+v", s)
		}
		if n := len(commandsNamed(mt, "find")); n != 1 {
			mt.Fatalf("expected a single find, got %d", n)
		}
	})
}

func TestGetStudentFallsBackToNativeIDAndBackfills(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("legacy document", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: oid},
				{Key: "name", Value: "Legacy"},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		repo := NewRepository(mt.DB)
		s, err := repo.GetStudent(context.Background(), oid.Hex())
		if err != nil {
			mt.Fatalf("get: %v", err)
		}
		if s == nil || s.ID != oid.Hex() {
			mt.Fatalf("expected external id backfilled in result, got %+v", s)
		}

		updates := commandsNamed(mt, "update")
		if len(updates) != 1 {
			mt.Fatalf("expected one backfill update, got %d", len(updates))
		}
		q := updates[0].Lookup("updates", "0", "q", "_id")
		if got, ok := q.ObjectIDOK(); !ok || got != oid {
			mt.Fatalf("expected backfill keyed by native id, got %v", q)
		}
		set := updates[0].Lookup("updates", "0", "u", "$set", "id")
		if got, ok := set.StringValueOK(); !ok || got != oid.Hex() {
			mt.Fatalf("expected backfill to set id, got %v", set)
		}
	})

	mt.Run("legacy document that already has an external id is not rewritten", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: oid},
				{Key: "id", Value: "other"},
				{Key: "name", Value: "Named"},
			}),
		)

		repo := NewRepository(mt.DB)
		s, err := repo.GetStudent(context.Background(), oid.Hex())
		if err != nil {
			mt.Fatalf("get: %v", err)
		}
		if s == nil || s.ID != "other" {
			mt.Fatalf("unexpected student %+v", s)
		}
		if n := len(commandsNamed(mt, "update")); n != 0 {
			mt.Fatalf("expected no backfill, got %d updates", n)
		}
	})
}

func TestGetStudentNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("non object id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		repo := NewRepository(mt.DB)
		s, err := repo.GetStudent(context.Background(), "missing")
		if err != nil || s != nil {
			mt.Fatalf("expected nil, nil got %+v, %v", s, err)
		}
		if n := len(commandsNamed(mt, "find")); n != 1 {
			mt.Fatalf("expected no native id query for non-hex id, got %d finds", n)
		}
	})

	mt.Run("object id with no document", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		repo := NewRepository(mt.DB)
		s, err := repo.GetStudent(context.Background(), primitive.NewObjectID().Hex())
		if err != nil || s != nil {
			mt.Fatalf("expected nil, nil got %+v, %v", s, err)
		}
	})
}

func TestUpdateStudentFallsBackToNativeID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("external id matches", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		name := "Renamed"
		repo := NewRepository(mt.DB)
		ok, err := repo.UpdateStudent(context.Background(), "stu-1", StudentPatch{Name: &name})
		if err != nil || !ok {
			mt.Fatalf("expected success, got %v %v", ok, err)
		}
		updates := commandsNamed(mt, "update")
		if len(updates) != 1 {
			mt.Fatalf("expected one update, got %d", len(updates))
		}
		if got := updates[0].Lookup("updates", "0", "u", "$set", "name").StringValue(); got != name {
			mt.Fatalf("expected name in $set, got %q", got)
		}
		if _, err := updates[0].LookupErr("updates", "0", "u", "$set", "updatedAt"); err != nil {
			mt.Fatalf("expected updatedAt stamped: %v", err)
		}
	})

	mt.Run("native id fallback sets external id", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		email := "a@x.edu"
		repo := NewRepository(mt.DB)
		ok, err := repo.UpdateStudent(context.Background(), oid.Hex(), StudentPatch{Email: &email})
		if err != nil || !ok {
			mt.Fatalf("expected success, got %v %v", ok, err)
		}
		updates := commandsNamed(mt, "update")
		if len(updates) != 2 {
			mt.Fatalf("expected two updates, got %d", len(updates))
		}
		if got, ok := updates[1].Lookup("updates", "0", "q", "_id").ObjectIDOK(); !ok || got != oid {
			mt.Fatalf("expected fallback keyed by native id")
		}
		if got := updates[1].Lookup("updates", "0", "u", "$set", "id").StringValue(); got != oid.Hex() {
			mt.Fatalf("expected fallback to set id, got %q", got)
		}
		if got := updates[1].Lookup("updates", "0", "u", "$set", "email").StringValue(); got != email {
			mt.Fatalf("expected fallback to carry the patch, got %q", got)
		}
	})

	mt.Run("missing under both schemes", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		repo := NewRepository(mt.DB)
		ok, err := repo.UpdateStudent(context.Background(), primitive.NewObjectID().Hex(), StudentPatch{})
		if err != nil || ok {
			mt.Fatalf("expected not found, got %v %v", ok, err)
		}
	})

	mt.Run("non object id stops after first phase", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		repo := NewRepository(mt.DB)
		ok, err := repo.UpdateStudent(context.Background(), "nope", StudentPatch{})
		if err != nil || ok {
			mt.Fatalf("expected not found, got %v %v", ok, err)
		}
		if n := len(commandsNamed(mt, "update")); n != 1 {
			mt.Fatalf("expected one update, got %d", n)
		}
	})
}

func TestCreateStudentAssignsBothIDs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("external id defaults to native id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		repo := NewRepository(mt.DB)
		s, err := repo.CreateStudent(context.Background(), Student{Name: "Asha", StudentID: "21DS001"})
		if err != nil {
			mt.Fatalf("create: %v", err)
		}
		if s.NativeID.IsZero() || s.ID != s.NativeID.Hex() {
			mt.Fatalf("expected id copied from native id, got %+v", s)
		}
		if s.CreatedAt.IsZero() || !s.CreatedAt.Equal(s.UpdatedAt) {
			mt.Fatalf("expected timestamps stamped, got %v %v", s.CreatedAt, s.UpdatedAt)
		}
		inserts := commandsNamed(mt, "insert")
		if len(inserts) != 1 {
			mt.Fatalf("expected one insert, got %d", len(inserts))
		}
		if got := inserts[0].Lookup("documents", "0", "id").StringValue(); got != s.ID {
			mt.Fatalf("expected id persisted in the insert, got %q", got)
		}
	})

	mt.Run("caller supplied external id is kept", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		repo := NewRepository(mt.DB)
		s, err := repo.CreateStudent(context.Background(), Student{ID: "s-42", Name: "B"})
		if err != nil {
			mt.Fatalf("create: %v", err)
		}
		if s.ID != "s-42" || s.NativeID.IsZero() {
			mt.Fatalf("unexpected ids %+v", s)
		}
	})

	mt.Run("duplicate student number", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		repo := NewRepository(mt.DB)
		_, err := repo.CreateStudent(context.Background(), Student{Name: "C", StudentID: "dup"})
		if !errors.Is(err, ErrDuplicate) {
			mt.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestListCoursesBackfillsExternalIDInView(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("mixed documents", func(mt *mtest.T) {
		legacy := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "iiit_attendance.courses", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "id", Value: "c-1"}, {Key: "name", Value: "Algorithms"}, {Key: "code", Value: "CS201"}},
			bson.D{{Key: "_id", Value: legacy}, {Key: "name", Value: "Intro"}, {Key: "code", Value: "CS101"}},
		))

		repo := NewRepository(mt.DB)
		courses, err := repo.ListCourses(context.Background())
		if err != nil {
			mt.Fatalf("list: %v", err)
		}
		if len(courses) != 2 {
			mt.Fatalf("expected 2 courses, got %d", len(courses))
		}
		if courses[0].ID != "c-1" || courses[1].ID != legacy.Hex() {
			mt.Fatalf("unexpected ids %q %q", courses[0].ID, courses[1].ID)
		}
	})
}

func TestListRecordsByCourse(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("CS101 has two sessions", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "iiit_attendance.attendance_records", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "id", Value: "r1"}, {Key: "courseId", Value: "CS101"}, {Key: "date", Value: "2024-01-08"}, {Key: "presentStudentIds", Value: bson.A{"A"}}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "id", Value: "r2"}, {Key: "courseId", Value: "CS101"}, {Key: "date", Value: "2024-01-09"}, {Key: "presentStudentIds", Value: bson.A{"A"}}},
		))

		repo := NewRepository(mt.DB)
		recs, err := repo.ListRecordsByCourse(context.Background(), "CS101")
		if err != nil {
			mt.Fatalf("list: %v", err)
		}
		if len(recs) != 2 {
			mt.Fatalf("expected 2 records, got %d", len(recs))
		}
		finds := commandsNamed(mt, "find")
		if got := finds[0].Lookup("filter", "courseId").StringValue(); got != "CS101" {
			mt.Fatalf("expected courseId filter, got %q", got)
		}
	})
}

func TestDeleteRecordFallsBackToNativeID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("native id", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		repo := NewRepository(mt.DB)
		ok, err := repo.DeleteRecord(context.Background(), primitive.NewObjectID().Hex())
		if err != nil || !ok {
			mt.Fatalf("expected delete to succeed, got %v %v", ok, err)
		}
		if n := len(commandsNamed(mt, "delete")); n != 2 {
			mt.Fatalf("expected two delete commands, got %d", n)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		repo := NewRepository(mt.DB)
		ok, err := repo.DeleteRecord(context.Background(), "gone")
		if err != nil || ok {
			mt.Fatalf("expected not found, got %v %v", ok, err)
		}
	})
}

func TestPatchFields(t *testing.T) {
	code := "CS102"
	ids := []string{"a", "b"}
	set := CoursePatch{Code: &code, StudentIDs: &ids}.fields()
	if len(set) != 2 || set["code"] != "CS102" {
		t.Fatalf("unexpected course patch %v", set)
	}

	var cleared []string
	set = RecordPatch{PresentStudentIDs: &cleared}.fields()
	if got, ok := set["presentStudentIds"].([]string); !ok || got == nil || len(got) != 0 {
		t.Fatalf("expected explicit empty roster, got %#v", set["presentStudentIds"])
	}

	if set := (StudentPatch{}).fields(); len(set) != 0 {
		t.Fatalf("expected empty patch to set nothing, got %v", set)
	}
}
