// Package insight builds attendance prompts, sends them to the generation
// backend and post-processes the replies.
package insight

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"campusattend/internal/llm"
	"campusattend/internal/logging"
)

// ErrNoRecords is returned when a course has no attendance records to analyze.
var ErrNoRecords = errors.New("no attendance records found for this course")

// ErrMissingInput is wrapped with the name of a required input that was nil.
var ErrMissingInput = errors.New("missing required field")

// Operation names, used as metric and log labels.
const (
	OpCourseSummary  = "course_summary"
	OpStudentSummary = "student_summary"
	OpGoal           = "goal"
	OpPrediction     = "prediction"
	OpChat           = "chat"
)

// Service runs the insight operations against a generator.
type Service struct {
	gen llm.Generator
}

// NewService creates an insight service.
func NewService(gen llm.Generator) *Service {
	return &Service{gen: gen}
}

// CourseSummary returns the model's JSON analysis of a course. Only enrolled
// students and the course's own records go into the prompt.
func (s *Service) CourseSummary(ctx context.Context, in CourseSummaryInput) (map[string]any, error) {
	if in.Course == nil {
		return nil, fmt.Errorf("%w: course", ErrMissingInput)
	}
	course := *in.Course
	enrolled := make([]Student, 0, len(in.Students))
	for _, st := range in.Students {
		if slices.Contains(course.StudentIDs, st.ID) {
			enrolled = append(enrolled, st)
		}
	}
	records := make([]Record, 0, len(in.Records))
	for _, r := range in.Records {
		if r.CourseID == course.ID {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	reply, err := s.gen.Generate(ctx, llm.Request{
		Operation:       OpCourseSummary,
		Prompt:          courseSummaryPrompt(course, enrolled, records),
		Temperature:     0.0,
		MaxOutputTokens: 800,
	})
	if err != nil {
		return nil, err
	}
	obj, err := ExtractJSON(reply)
	if err != nil {
		logging.FromContext(ctx).Warn("course summary reply is not JSON", "course_id", course.ID, "raw_response", reply)
		return nil, err
	}
	return obj, nil
}

// StudentSummary computes the student's attendance locally and asks the model
// for a short paragraph around those numbers.
func (s *Service) StudentSummary(ctx context.Context, in StudentSummaryInput) (StudentSummary, error) {
	if in.Student == nil {
		return StudentSummary{}, fmt.Errorf("%w: student", ErrMissingInput)
	}
	stats := ComputeStudentStats(in.Student.ID, in.Courses, in.Records)
	text, err := s.gen.Generate(ctx, llm.Request{
		Operation:       OpStudentSummary,
		Prompt:          studentSummaryPrompt(in.Student.Name, stats),
		Temperature:     0.3,
		MaxOutputTokens: 500,
	})
	if err != nil {
		return StudentSummary{}, err
	}
	return StudentSummary{Summary: text, Stats: stats}, nil
}

// Goal suggests an attendance goal with tips.
func (s *Service) Goal(ctx context.Context, in GoalInput) (string, error) {
	if in.CurrentPercentage == nil {
		return "", fmt.Errorf("%w: currentPercentage", ErrMissingInput)
	}
	return s.gen.Generate(ctx, llm.Request{
		Operation:       OpGoal,
		Prompt:          goalPrompt(in),
		Temperature:     0.4,
		MaxOutputTokens: 500,
	})
}

// Prediction extrapolates the recent attendance pattern.
func (s *Service) Prediction(ctx context.Context, in PredictionInput) (string, error) {
	return s.gen.Generate(ctx, llm.Request{
		Operation:       OpPrediction,
		Prompt:          predictionPrompt(in),
		Temperature:     0.2,
		MaxOutputTokens: 500,
	})
}

// Chat forwards prompt unchanged.
func (s *Service) Chat(ctx context.Context, prompt string) (string, error) {
	return s.gen.Generate(ctx, llm.Request{
		Operation:       OpChat,
		Prompt:          prompt,
		Temperature:     0.7,
		MaxOutputTokens: 500,
	})
}
