package insight

// The inputs below mirror what the dashboard already holds in memory. They are
// supplied with each request rather than read from the store.

type Student struct {
	ID        string `json:"id" binding:"required"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

type Course struct {
	ID         string   `json:"id" binding:"required"`
	Name       string   `json:"name"`
	Code       string   `json:"code"`
	StudentIDs []string `json:"studentIds"`
}

type Record struct {
	CourseID          string   `json:"courseId" binding:"required"`
	Date              string   `json:"date"`
	PresentStudentIDs []string `json:"presentStudentIds"`
}

// CourseSummaryInput asks for a structured analysis of one course.
type CourseSummaryInput struct {
	Course   *Course   `json:"course" binding:"required"`
	Students []Student `json:"students" binding:"required,dive"`
	Records  []Record  `json:"records" binding:"required,dive"`
}

// StudentSummaryInput asks for an encouraging paragraph about one student.
type StudentSummaryInput struct {
	Student *Student `json:"student" binding:"required"`
	Courses []Course `json:"courses" binding:"required,dive"`
	Records []Record `json:"records" binding:"required,dive"`
}

// StudentSummary is the generated paragraph plus the numbers it was built from.
type StudentSummary struct {
	Summary string       `json:"summary"`
	Stats   StudentStats `json:"stats"`
}

type GoalInput struct {
	StudentName       string   `json:"studentName" binding:"required"`
	CourseName        string   `json:"courseName" binding:"required"`
	CurrentPercentage *float64 `json:"currentPercentage" binding:"required"`
}

// Session is one past session of a student, oldest first.
type Session struct {
	Date      string `json:"date" binding:"required"`
	IsPresent bool   `json:"isPresent"`
}

type PredictionInput struct {
	StudentName   string    `json:"studentName" binding:"required"`
	CourseName    string    `json:"courseName" binding:"required"`
	RecentRecords []Session `json:"recentRecords" binding:"required,dive"`
}
