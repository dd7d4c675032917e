package attendance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student is a learner known to the system. ID is the caller-visible id; legacy
// documents may lack it, in which case the native id stands in for it.
type Student struct {
	NativeID  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ID        string             `bson:"id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	StudentID string             `bson:"studentId,omitempty" json:"studentId,omitempty"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Photo     string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Branch    string             `bson:"branch,omitempty" json:"branch,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Course groups enrolled students by their external ids.
type Course struct {
	NativeID   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ID         string             `bson:"id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Code       string             `bson:"code" json:"code"`
	StudentIDs []string           `bson:"studentIds" json:"studentIds"`
	Branch     string             `bson:"branch,omitempty" json:"branch,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Record is one attendance session of a course on a date.
type Record struct {
	NativeID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ID                string             `bson:"id,omitempty" json:"id"`
	CourseID          string             `bson:"courseId" json:"courseId"`
	Date              string             `bson:"date" json:"date"`
	PresentStudentIDs []string           `bson:"presentStudentIds" json:"presentStudentIds"`
	Timestamp         int64              `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// User is an operator account used for token issuance.
type User struct {
	NativeID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// entity is implemented by documents that carry both id schemes.
type entity interface {
	externalID() string
	setExternalID(id string)
	nativeID() primitive.ObjectID
	setNativeID(oid primitive.ObjectID)
	stamp(now time.Time)
}

func (s *Student) externalID() string                 { return s.ID }
func (s *Student) setExternalID(id string)            { s.ID = id }
func (s *Student) nativeID() primitive.ObjectID       { return s.NativeID }
func (s *Student) setNativeID(oid primitive.ObjectID) { s.NativeID = oid }
func (s *Student) stamp(now time.Time)                { s.CreatedAt, s.UpdatedAt = now, now }

func (c *Course) externalID() string                 { return c.ID }
func (c *Course) setExternalID(id string)            { c.ID = id }
func (c *Course) nativeID() primitive.ObjectID       { return c.NativeID }
func (c *Course) setNativeID(oid primitive.ObjectID) { c.NativeID = oid }
func (c *Course) stamp(now time.Time) {
	c.CreatedAt, c.UpdatedAt = now, now
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
}

func (r *Record) externalID() string                 { return r.ID }
func (r *Record) setExternalID(id string)            { r.ID = id }
func (r *Record) nativeID() primitive.ObjectID       { return r.NativeID }
func (r *Record) setNativeID(oid primitive.ObjectID) { r.NativeID = oid }
func (r *Record) stamp(now time.Time) {
	r.CreatedAt, r.UpdatedAt = now, now
	if r.PresentStudentIDs == nil {
		r.PresentStudentIDs = []string{}
	}
}

// StudentPatch lists the student fields an update may change. Nil means untouched.
type StudentPatch struct {
	Name      *string `json:"name"`
	StudentID *string `json:"studentId"`
	Email     *string `json:"email"`
	Photo     *string `json:"photo"`
	Branch    *string `json:"branch"`
}

func (p StudentPatch) fields() bson.M {
	set := bson.M{}
	putString(set, "name", p.Name)
	putString(set, "studentId", p.StudentID)
	putString(set, "email", p.Email)
	putString(set, "photo", p.Photo)
	putString(set, "branch", p.Branch)
	return set
}

// CoursePatch lists the course fields an update may change.
type CoursePatch struct {
	Name       *string   `json:"name"`
	Code       *string   `json:"code"`
	StudentIDs *[]string `json:"studentIds"`
	Branch     *string   `json:"branch"`
}

func (p CoursePatch) fields() bson.M {
	set := bson.M{}
	putString(set, "name", p.Name)
	putString(set, "code", p.Code)
	putStrings(set, "studentIds", p.StudentIDs)
	putString(set, "branch", p.Branch)
	return set
}

// RecordPatch lists the attendance record fields an update may change.
type RecordPatch struct {
	CourseID          *string   `json:"courseId"`
	Date              *string   `json:"date"`
	PresentStudentIDs *[]string `json:"presentStudentIds"`
	Timestamp         *int64    `json:"timestamp"`
}

func (p RecordPatch) fields() bson.M {
	set := bson.M{}
	putString(set, "courseId", p.CourseID)
	putString(set, "date", p.Date)
	putStrings(set, "presentStudentIds", p.PresentStudentIDs)
	if p.Timestamp != nil {
		set["timestamp"] = *p.Timestamp
	}
	return set
}

func putString(set bson.M, key string, v *string) {
	if v != nil {
		set[key] = *v
	}
}

func putStrings(set bson.M, key string, v *[]string) {
	if v == nil {
		return
	}
	if *v == nil {
		set[key] = []string{}
		return
	}
	set[key] = *v
}
