package report

import (
	"math"
	"time"

	"github.com/frahmantamala/attendance-management/internal/attendance"
)

// Stats is the admin dashboard for one calendar month.
type Stats struct {
	TotalEmployees   int64   `json:"totalEmployees"`
	ActiveToday      int64   `json:"activeToday"`
	TotalPresence    int64   `json:"totalPresence"`
	OntimeCount      int64   `json:"ontimeCount"`
	LateCount        int64   `json:"lateCount"`
	WorkingDays      int     `json:"workingDays"`
	AttendanceRate   float64 `json:"attendanceRate"`
	OntimePercentage float64 `json:"ontimePercentage"`
	LatePercentage   float64 `json:"latePercentage"`
	Month            int     `json:"month"`
	Year             int     `json:"year"`
}

type PresenceCounts struct {
	Total  int64 `db:"total"`
	Ontime int64 `db:"ontime"`
	Late   int64 `db:"late"`
}

// PresenceRow is a presence joined with the owning user's name and email.
type PresenceRow struct {
	ID                    int64             `json:"id"`
	UserID                int64             `json:"userId"`
	UserName              string            `json:"userName"`
	UserEmail             string            `json:"userEmail"`
	Date                  time.Time         `json:"date"`
	ClockIn               time.Time         `json:"clockIn"`
	ClockOut              *time.Time        `json:"clockOut"`
	Status                attendance.Status `json:"status"`
	WorkDuration          *int              `json:"workDuration"`
	WorkDurationFormatted string            `json:"workDurationFormatted,omitempty"`
}

type PresenceFilter struct {
	UserID int64
	Status attendance.Status
	Date   string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

func (f PresenceFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Employee struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// EmployeeMonth is one line of the monthly report.
type EmployeeMonth struct {
	Employee
	attendance.Summary
	AbsentDays int `json:"absentDays"`
}

type MonthlyReport struct {
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	WorkingDays int             `json:"workingDays"`
	Employees   []EmployeeMonth `json:"employees"`
}

// WorkingDaysInMonth counts Monday through Friday in the month.
func WorkingDaysInMonth(year int, month time.Month) int {
	days := 0
	for d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

func percentage(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(part/whole*100*100) / 100
}
