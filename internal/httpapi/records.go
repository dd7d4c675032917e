package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusattend/internal/attendance"
	"campusattend/internal/cloudinary"
)

// ---------- Students ----------

type studentRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" binding:"required"`
	StudentID string `json:"studentId"`
	Email     string `json:"email" binding:"omitempty,email"`
	Photo     string `json:"photo"`
	Branch    string `json:"branch"`
}

// offloadPhoto replaces an inline data URL with the uploaded image's URL.
// Plain URLs, and everything when no uploader is configured, pass through.
func (h *Handler) offloadPhoto(ctx context.Context, photo string) (string, error) {
	if h.photos == nil || !cloudinary.IsDataURL(photo) {
		return photo, nil
	}
	res, err := h.photos.UploadDataURL(ctx, photo)
	if err != nil {
		return "", &PhotoUploadError{Err: err}
	}
	return res.SecureURL, nil
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.store.ListStudents(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req studentRequest
	if err := bindJSON(c, &req); err != nil {
		writeServiceError(c, err)
		return
	}
	photo, err := h.offloadPhoto(c.Request.Context(), req.Photo)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	st, err := h.store.CreateStudent(c.Request.Context(), attendance.Student{
		ID:        req.ID,
		Name:      req.Name,
		StudentID: req.StudentID,
		Email:     req.Email,
		Photo:     photo,
		Branch:    req.Branch,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.store.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var patch attendance.StudentPatch
	if err := bindJSON(c, &patch); err != nil {
		writeServiceError(c, err)
		return
	}
	if patch.Photo != nil {
		photo, err := h.offloadPhoto(c.Request.Context(), *patch.Photo)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		patch.Photo = &photo
	}
	ok, err := h.store.UpdateStudent(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully"})
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	ok, err := h.store.DeleteStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}

// ---------- Courses ----------

type courseRequest struct {
	ID         string   `json:"id"`
	Name       string   `json:"name" binding:"required"`
	Code       string   `json:"code" binding:"required"`
	StudentIDs []string `json:"studentIds"`
	Branch     string   `json:"branch"`
}

func (h *Handler) ListCourses(c *gin.Context) {
	courses, err := h.store.ListCourses(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *Handler) CreateCourse(c *gin.Context) {
	var req courseRequest
	if err := bindJSON(c, &req); err != nil {
		writeServiceError(c, err)
		return
	}
	course, err := h.store.CreateCourse(c.Request.Context(), attendance.Course{
		ID:         req.ID,
		Name:       req.Name,
		Code:       req.Code,
		StudentIDs: req.StudentIDs,
		Branch:     req.Branch,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *Handler) GetCourse(c *gin.Context) {
	course, err := h.store.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) UpdateCourse(c *gin.Context) {
	var patch attendance.CoursePatch
	if err := bindJSON(c, &patch); err != nil {
		writeServiceError(c, err)
		return
	}
	ok, err := h.store.UpdateCourse(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course updated successfully"})
}

func (h *Handler) DeleteCourse(c *gin.Context) {
	ok, err := h.store.DeleteCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

// ---------- Attendance records ----------

type recordRequest struct {
	ID                string   `json:"id"`
	CourseID          string   `json:"courseId" binding:"required"`
	Date              string   `json:"date" binding:"required"`
	PresentStudentIDs []string `json:"presentStudentIds"`
	Timestamp         int64    `json:"timestamp"`
}

// ListRecords lists every record, the records of ?courseId, or the single
// record of ?courseId on ?date.
func (h *Handler) ListRecords(c *gin.Context) {
	ctx := c.Request.Context()
	courseID, date := c.Query("courseId"), c.Query("date")

	switch {
	case courseID != "" && date != "":
		rec, err := h.store.GetRecordByDate(ctx, courseID, date)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	case date != "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "courseId is required when filtering by date"})
	default:
		var (
			recs []attendance.Record
			err  error
		)
		if courseID != "" {
			recs, err = h.store.ListRecordsByCourse(ctx, courseID)
		} else {
			recs, err = h.store.ListRecords(ctx)
		}
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

func (h *Handler) CreateRecord(c *gin.Context) {
	var req recordRequest
	if err := bindJSON(c, &req); err != nil {
		writeServiceError(c, err)
		return
	}
	rec, err := h.store.CreateRecord(c.Request.Context(), attendance.Record{
		ID:                req.ID,
		CourseID:          req.CourseID,
		Date:              req.Date,
		PresentStudentIDs: req.PresentStudentIDs,
		Timestamp:         req.Timestamp,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.store.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdateRecord(c *gin.Context) {
	var patch attendance.RecordPatch
	if err := bindJSON(c, &patch); err != nil {
		writeServiceError(c, err)
		return
	}
	ok, err := h.store.UpdateRecord(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance record updated successfully"})
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	ok, err := h.store.DeleteRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance record deleted successfully"})
}
