package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/insight"
	"campusattend/internal/llm"
	"campusattend/internal/logging"
)

// ValidationError reports a request body that is missing fields or is not
// valid JSON.
type ValidationError struct {
	Fields []string
	Msg    string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return "Missing required field: " + strings.Join(e.Fields, ", ")
	}
	return e.Msg
}

// PhotoUploadError reports a failed photo offload.
type PhotoUploadError struct {
	Err error
}

func (e *PhotoUploadError) Error() string { return "image upload failed: " + e.Err.Error() }

func (e *PhotoUploadError) Unwrap() error { return e.Err }

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their JSON name.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// bindJSON decodes the body into dst and runs its binding rules.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldPath(fe))
		}
		return &ValidationError{Fields: fields}
	}
	return &ValidationError{Msg: "invalid request body: " + err.Error()}
}

// fieldPath drops the root struct name, e.g. "CourseSummaryInput.course.id" -> "course.id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// writeServiceError maps domain errors to the JSON error envelope.
func writeServiceError(c *gin.Context, err error) {
	log := logging.FromContext(c.Request.Context())

	var (
		verr  *ValidationError
		perr  *insight.ParseError
		upErr *llm.UpstreamError
		phErr *PhotoUploadError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, insight.ErrMissingInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, insight.ErrNoRecords):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No attendance records found for this course"})
	case errors.Is(err, attendance.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "a record with the same unique key already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.As(err, &perr):
		log.Error("unparseable generation reply", "error", perr.Err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        "Failed to parse AI response",
			"details":      perr.Err.Error(),
			"raw_response": perr.Raw,
		})
	case errors.As(err, &phErr):
		log.Error("photo upload failed", "error", phErr.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
	case errors.As(err, &upErr):
		log.Error("generation failed", "provider", upErr.Provider, "error", upErr.Err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": upErr.Error()})
	default:
		log.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
