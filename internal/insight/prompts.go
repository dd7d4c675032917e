package insight

import (
	"fmt"
	"strconv"
	"strings"
)

const courseSummarySchema = `{
  "overallAttendancePercentage": number,
  "atRiskStudents": [{"name": string, "studentId": string, "attendancePercentage": number}],
  "notableTrends": [string],
  "concludingRemark": string,
  "attendanceDistribution": {"perfect": number, "good": number, "atRisk": number, "critical": number},
  "actionableInsight": string
}`

func courseSummaryPrompt(course Course, enrolled []Student, records []Record) string {
	var b strings.Builder
	b.WriteString("You are an analytical assistant. Produce ONLY valid JSON (no explanatory text) matching this exact schema:\n")
	b.WriteString(courseSummarySchema)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Now analyze the course: \"%s (%s)\".\n", course.Name, course.Code)
	fmt.Fprintf(&b, "Enrolled students: %d.\n", len(enrolled))
	fmt.Fprintf(&b, "Sessions recorded: %d.\n\n", len(records))

	b.WriteString("Enrolled Students List:\n")
	lines := make([]string, 0, len(enrolled))
	for _, s := range enrolled {
		lines = append(lines, fmt.Sprintf("- %s (%s)", s.Name, s.StudentID))
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")

	b.WriteString("Raw Attendance Data (present student IDs per date):\n")
	lines = lines[:0]
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("Date: %s, Present IDs: [%s]", r.Date, strings.Join(r.PresentStudentIDs, ", ")))
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nReturn strictly the JSON object described above. No additional text.")
	return b.String()
}

func studentSummaryPrompt(name string, stats StudentStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an encouraging academic advisor. Write a short (2-3 sentence) supportive summary for %s.\n", name)
	fmt.Fprintf(&b, "Overall Attendance: %d%%\n", stats.OverallPercentage)
	fmt.Fprintf(&b, "Total Classes Attended: %d out of %d\n", stats.Present, stats.Total)
	b.WriteString("Course-specific percentages:\n")
	lines := make([]string, 0, len(stats.Courses))
	for _, c := range stats.Courses {
		lines = append(lines, fmt.Sprintf("- %s: %d%%", c.Name, c.Percentage))
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nKeep tone positive and encouraging. Do not exceed 3 sentences.")
	return b.String()
}

func goalPrompt(in GoalInput) string {
	return fmt.Sprintf("You are a motivational academic coach. For %s in %s with current attendance %s%%, "+
		"suggest a realistic attendance goal for the next month and give 2-3 short actionable tips. "+
		"Keep under 100 words and format using Markdown with a bulleted list for tips.",
		in.StudentName, in.CourseName, formatPercent(*in.CurrentPercentage))
}

func predictionPrompt(in PredictionInput) string {
	lines := make([]string, 0, len(in.RecentRecords))
	for _, s := range in.RecentRecords {
		status := "Absent"
		if s.IsPresent {
			status = "Present"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Date, status))
	}
	return fmt.Sprintf("You are an analytical academic advisor. For %s in %s, here is recent attendance:\n%s\n\n"+
		"Provide a one-sentence prediction of likely end-of-semester attendance if this pattern continues, "+
		"and one-sentence observation about recent performance. Keep under 75 words.",
		in.StudentName, in.CourseName, strings.Join(lines, "\n"))
}

// formatPercent prints whole numbers without a fractional part.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
