package insight

import (
	"math"
	"slices"
)

// Percentage returns round(present/total*100), or 100 when there were no
// sessions. Halves round to even.
func Percentage(present, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.RoundToEven(float64(present) / float64(total) * 100))
}

// CourseStat is a student's attendance in one course.
type CourseStat struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	Present    int    `json:"present"`
	Total      int    `json:"total"`
}

// StudentStats aggregates a student's attendance over their courses.
type StudentStats struct {
	OverallPercentage int          `json:"overallPercentage"`
	Present           int          `json:"presentClasses"`
	Total             int          `json:"totalClasses"`
	Courses           []CourseStat `json:"courses"`
}

// ComputeStudentStats counts the sessions of every course the student is
// enrolled in. Courses without sessions report 100% and do not count toward
// the overall figure.
func ComputeStudentStats(studentID string, courses []Course, records []Record) StudentStats {
	stats := StudentStats{Courses: []CourseStat{}}
	for _, c := range courses {
		if !slices.Contains(c.StudentIDs, studentID) {
			continue
		}
		var present, total int
		for _, r := range records {
			if r.CourseID != c.ID {
				continue
			}
			total++
			if slices.Contains(r.PresentStudentIDs, studentID) {
				present++
			}
		}
		stats.Present += present
		stats.Total += total
		stats.Courses = append(stats.Courses, CourseStat{
			Name:       c.Name,
			Percentage: Percentage(present, total),
			Present:    present,
			Total:      total,
		})
	}
	stats.OverallPercentage = Percentage(stats.Present, stats.Total)
	return stats
}
