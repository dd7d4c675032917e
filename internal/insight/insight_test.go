package insight

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"campusattend/internal/llm"
)

type fakeGenerator struct {
	reply string
	err   error
	calls []llm.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func cs101() ([]Student, Course, []Record) {
	students := []Student{
		{ID: "A", Name: "Asha", StudentID: "21CS001"},
		{ID: "B", Name: "Bilal", StudentID: "21CS002"},
		{ID: "C", Name: "Chen", StudentID: "21CS003"},
	}
	course := Course{ID: "CS101", Name: "Intro to Programming", Code: "CS101", StudentIDs: []string{"A", "B"}}
	records := []Record{
		{CourseID: "CS101", Date: "2024-01-08", PresentStudentIDs: []string{"A"}},
		{CourseID: "CS101", Date: "2024-01-09", PresentStudentIDs: []string{"A"}},
		{CourseID: "MA101", Date: "2024-01-09", PresentStudentIDs: []string{"B", "C"}},
	}
	return students, course, records
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		present, total, want int
	}{
		{0, 0, 100},
		{2, 2, 100},
		{0, 2, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 12}, // 12.5 rounds to even
		{3, 8, 38}, // 37.5 rounds to even
	}
	for _, tt := range tests {
		if got := Percentage(tt.present, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tt.present, tt.total, got, tt.want)
		}
	}
}

func TestComputeStudentStatsCS101(t *testing.T) {
	_, course, records := cs101()
	courses := []Course{course, {ID: "EMPTY", Name: "Seminar", StudentIDs: []string{"A", "B"}}}

	a := ComputeStudentStats("A", courses, records)
	if a.OverallPercentage != 100 || a.Present != 2 || a.Total != 2 {
		t.Fatalf("unexpected stats for A: %+v", a)
	}
	b := ComputeStudentStats("B", courses, records)
	if b.OverallPercentage != 0 || b.Present != 0 || b.Total != 2 {
		t.Fatalf("unexpected stats for B: %+v", b)
	}
	if len(b.Courses) != 2 || b.Courses[1].Name != "Seminar" || b.Courses[1].Percentage != 100 {
		t.Fatalf("expected a course without sessions to report 100%%, got %+v", b.Courses)
	}
}

func TestComputeStudentStatsWithoutSessions(t *testing.T) {
	stats := ComputeStudentStats("Z", []Course{{ID: "X", Name: "X", StudentIDs: []string{"Z"}}}, nil)
	if stats.OverallPercentage != 100 || stats.Total != 0 {
		t.Fatalf("expected 100%% overall with no sessions, got %+v", stats)
	}

	stats = ComputeStudentStats("nobody", nil, nil)
	if stats.OverallPercentage != 100 || stats.Courses == nil {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCourseSummary(t *testing.T) {
	students, course, records := cs101()
	gen := &fakeGenerator{reply: "Here you go:\n```json\n{\"overallAttendancePercentage\": 50, \"notableTrends\": []}\n```"}
	svc := NewService(gen)

	got, err := svc.CourseSummary(context.Background(), CourseSummaryInput{Course: &course, Students: students, Records: records})
	if err != nil {
		t.Fatalf("course summary: %v", err)
	}
	if got["overallAttendancePercentage"] != json.Number("50") {
		t.Fatalf("unexpected result %v", got)
	}

	if len(gen.calls) != 1 {
		t.Fatalf("expected one generation call, got %d", len(gen.calls))
	}
	req := gen.calls[0]
	if req.Operation != OpCourseSummary || req.Temperature != 0 || req.MaxOutputTokens != 800 {
		t.Fatalf("unexpected request settings %+v", req)
	}
	for _, want := range []string{
		`Now analyze the course: "Intro to Programming (CS101)".`,
		"Enrolled students: 2.",
		"Sessions recorded: 2.",
		"- Asha (21CS001)\n- Bilal (21CS002)",
		"Date: 2024-01-08, Present IDs: [A]",
		`"attendanceDistribution": {"perfect": number, "good": number, "atRisk": number, "critical": number}`,
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(req.Prompt, "Chen") || strings.Contains(req.Prompt, "Present IDs: [B, C]") {
		t.Errorf("prompt leaked data from other courses:\n%s", req.Prompt)
	}
}

func TestCourseSummaryWithoutRecordsSkipsGeneration(t *testing.T) {
	students, course, records := cs101()
	course.ID = "PH101"
	gen := &fakeGenerator{reply: "{}"}

	_, err := NewService(gen).CourseSummary(context.Background(), CourseSummaryInput{Course: &course, Students: students, Records: records})
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator must not be called, got %d calls", len(gen.calls))
	}
}

func TestCourseSummaryMalformedReply(t *testing.T) {
	students, course, records := cs101()
	reply := "```json\n{\"overallAttendancePercentage\": 50,\n```"
	_, err := NewService(&fakeGenerator{reply: reply}).CourseSummary(context.Background(), CourseSummaryInput{Course: &course, Students: students, Records: records})

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Raw != reply {
		t.Fatalf("expected raw reply preserved, got %q", perr.Raw)
	}
}

func TestCourseSummaryUpstreamError(t *testing.T) {
	students, course, records := cs101()
	upstream := &llm.UpstreamError{Provider: llm.ProviderOllama, Err: context.DeadlineExceeded}
	_, err := NewService(&fakeGenerator{err: upstream}).CourseSummary(context.Background(), CourseSummaryInput{Course: &course, Students: students, Records: records})

	var up *llm.UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestStudentSummary(t *testing.T) {
	_, course, records := cs101()
	gen := &fakeGenerator{reply: "Bilal can turn things around."}

	got, err := NewService(gen).StudentSummary(context.Background(), StudentSummaryInput{
		Student: &Student{ID: "B", Name: "Bilal"},
		Courses: []Course{course},
		Records: records,
	})
	if err != nil {
		t.Fatalf("student summary: %v", err)
	}
	if got.Summary != "Bilal can turn things around." || got.Stats.OverallPercentage != 0 {
		t.Fatalf("unexpected summary %+v", got)
	}
	req := gen.calls[0]
	if req.Temperature != 0.3 || req.MaxOutputTokens != 500 {
		t.Fatalf("unexpected settings %+v", req)
	}
	for _, want := range []string{
		"supportive summary for Bilal.",
		"Overall Attendance: 0%",
		"Total Classes Attended: 0 out of 2",
		"- Intro to Programming: 0%",
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, req.Prompt)
		}
	}
}

func TestGoalAndPrediction(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	svc := NewService(gen)
	pct := 85.0

	if _, err := svc.Goal(context.Background(), GoalInput{StudentName: "Asha", CourseName: "CS101", CurrentPercentage: &pct}); err != nil {
		t.Fatalf("goal: %v", err)
	}
	if !strings.Contains(gen.calls[0].Prompt, "For Asha in CS101 with current attendance 85%,") {
		t.Fatalf("unexpected goal prompt %q", gen.calls[0].Prompt)
	}
	if gen.calls[0].Temperature != 0.4 {
		t.Fatalf("unexpected goal temperature %v", gen.calls[0].Temperature)
	}

	if _, err := svc.Goal(context.Background(), GoalInput{StudentName: "Asha", CourseName: "CS101"}); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}

	_, err := svc.Prediction(context.Background(), PredictionInput{
		StudentName:   "Asha",
		CourseName:    "CS101",
		RecentRecords: []Session{{Date: "2024-01-08", IsPresent: true}, {Date: "2024-01-09"}},
	})
	if err != nil {
		t.Fatalf("prediction: %v", err)
	}
	p := gen.calls[len(gen.calls)-1]
	if !strings.Contains(p.Prompt, "- 2024-01-08: Present\n- 2024-01-09: Absent") || p.Temperature != 0.2 {
		t.Fatalf("unexpected prediction request %+v", p)
	}
}

func TestChatPassesPromptThrough(t *testing.T) {
	gen := &fakeGenerator{reply: "Hello"}
	got, err := NewService(gen).Chat(context.Background(), "How is CS101 doing?")
	if err != nil || got != "Hello" {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if gen.calls[0].Prompt != "How is CS101 doing?" || gen.calls[0].Temperature != 0.7 {
		t.Fatalf("unexpected request %+v", gen.calls[0])
	}
}
