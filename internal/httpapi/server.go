// Package httpapi exposes the attendance store and the insight pipeline over
// HTTP/JSON.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/cloudinary"
	"campusattend/internal/config"
	"campusattend/internal/httpmiddleware"
	"campusattend/internal/insight"
)

// Store is the record store the handlers need.
type Store interface {
	CreateStudent(ctx context.Context, s attendance.Student) (attendance.Student, error)
	ListStudents(ctx context.Context) ([]attendance.Student, error)
	GetStudent(ctx context.Context, id string) (*attendance.Student, error)
	UpdateStudent(ctx context.Context, id string, patch attendance.StudentPatch) (bool, error)
	DeleteStudent(ctx context.Context, id string) (bool, error)

	CreateCourse(ctx context.Context, c attendance.Course) (attendance.Course, error)
	ListCourses(ctx context.Context) ([]attendance.Course, error)
	GetCourse(ctx context.Context, id string) (*attendance.Course, error)
	UpdateCourse(ctx context.Context, id string, patch attendance.CoursePatch) (bool, error)
	DeleteCourse(ctx context.Context, id string) (bool, error)

	CreateRecord(ctx context.Context, r attendance.Record) (attendance.Record, error)
	ListRecords(ctx context.Context) ([]attendance.Record, error)
	ListRecordsByCourse(ctx context.Context, courseID string) ([]attendance.Record, error)
	GetRecordByDate(ctx context.Context, courseID, date string) (*attendance.Record, error)
	GetRecord(ctx context.Context, id string) (*attendance.Record, error)
	UpdateRecord(ctx context.Context, id string, patch attendance.RecordPatch) (bool, error)
	DeleteRecord(ctx context.Context, id string) (bool, error)

	auth.UserStore
}

// Insights runs the generation-backed operations.
type Insights interface {
	CourseSummary(ctx context.Context, in insight.CourseSummaryInput) (map[string]any, error)
	StudentSummary(ctx context.Context, in insight.StudentSummaryInput) (insight.StudentSummary, error)
	Goal(ctx context.Context, in insight.GoalInput) (string, error)
	Prediction(ctx context.Context, in insight.PredictionInput) (string, error)
	Chat(ctx context.Context, prompt string) (string, error)
}

// PhotoUploader moves an inline image to external storage.
type PhotoUploader interface {
	UploadDataURL(ctx context.Context, data string) (*cloudinary.UploadResult, error)
}

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Options wires the router. Redis, Photos, Limiter and AILimiter are optional.
// Without Photos, student photos are stored as sent.
type Options struct {
	Config   config.App
	Logger   *slog.Logger
	Store    Store
	Insights Insights
	// AIProvider is reported by the health endpoint, e.g. "gemini/gemini-2.0-flash".
	AIProvider string
	Mongo      Checker
	Redis      Checker
	Photos     PhotoUploader
	Limiter    httpmiddleware.Limiter
	AILimiter  httpmiddleware.Limiter
}

type Handler struct {
	store      Store
	insights   Insights
	cfg        config.App
	aiProvider string
	mongo      Checker
	redis      Checker
	photos     PhotoUploader
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(o Options) *gin.Engine {
	useJSONFieldNames()
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	h := &Handler{
		store:      o.Store,
		insights:   o.Insights,
		cfg:        o.Config,
		aiProvider: o.AIProvider,
		mongo:      o.Mongo,
		redis:      o.Redis,
		photos:     o.Photos,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestContext(o.Logger))
	r.Use(accessLog("/metrics", "/api/health"))
	r.Use(corsMiddleware(o.Config.CORSOrigins))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/", h.Index)

	api := r.Group("/api")
	if o.Limiter != nil {
		api.Use(httpmiddleware.RateLimit(o.Limiter, "api"))
	}
	api.GET("/health", h.Health)

	// Auth
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)

	protected := api.Group("")
	if o.Config.AuthRequired {
		protected.Use(auth.UserAuth(o.Config.JWTSigningKey, o.Config.JWTIssuer))
		protected.POST("/auth/register", auth.RequireRole(auth.RoleAdmin), h.Register)
	} else {
		api.POST("/auth/register", h.Register)
	}

	// Students
	protected.GET("/students", h.ListStudents)
	protected.POST("/students", h.CreateStudent)
	protected.GET("/students/:id", h.GetStudent)
	protected.PUT("/students/:id", h.UpdateStudent)
	protected.DELETE("/students/:id", h.DeleteStudent)

	// Courses
	protected.GET("/courses", h.ListCourses)
	protected.POST("/courses", h.CreateCourse)
	protected.GET("/courses/:id", h.GetCourse)
	protected.PUT("/courses/:id", h.UpdateCourse)
	protected.DELETE("/courses/:id", h.DeleteCourse)

	// Attendance records
	protected.GET("/attendance", h.ListRecords)
	protected.POST("/attendance", h.CreateRecord)
	protected.GET("/attendance/:id", h.GetRecord)
	protected.PUT("/attendance/:id", h.UpdateRecord)
	protected.DELETE("/attendance/:id", h.DeleteRecord)

	// Insights
	ai := protected.Group("")
	if o.AILimiter != nil {
		ai.Use(httpmiddleware.RateLimit(o.AILimiter, "ai"))
	}
	if o.Insights == nil {
		ai.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "AI service is not configured"})
		})
	}
	ai.POST("/attendance/summary", h.CourseSummary)
	ai.POST("/student/summary", h.StudentSummary)
	ai.POST("/student/goal", h.Goal)
	ai.POST("/student/prediction", h.Prediction)
	ai.POST("/chat", h.Chat)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}
