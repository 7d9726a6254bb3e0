package attendance

import (
	"errors"
	"fmt"
	"math"
	"time"

	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
)

type Status = presenceDatamodel.Status

const (
	StatusOntime = presenceDatamodel.StatusOntime
	StatusLate   = presenceDatamodel.StatusLate
)

var (
	ErrPresenceNotFound = errors.New("presence not found")
	ErrInvalidDuration  = errors.New("clock out is before clock in")
)

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Presence is the API view of a daily attendance record. WorkDuration is derived on read.
type Presence struct {
	ID                    int64      `json:"id"`
	UserID                int64      `json:"userId"`
	Date                  time.Time  `json:"date"`
	ClockIn               time.Time  `json:"clockIn"`
	ClockOut              *time.Time `json:"clockOut"`
	LocationIn            Location   `json:"locationIn"`
	LocationOut           *Location  `json:"locationOut,omitempty"`
	Status                Status     `json:"status"`
	WorkDuration          *int       `json:"workDuration"`
	WorkDurationFormatted string     `json:"workDurationFormatted,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func FromDataModel(p *presenceDatamodel.Presence, loc *time.Location) *Presence {
	if loc == nil {
		loc = time.Local
	}
	out := &Presence{
		ID:         p.ID,
		UserID:     p.UserID,
		Date:       p.Date.In(loc),
		ClockIn:    p.ClockIn.In(loc),
		LocationIn: Location{Lat: p.LatIn, Lng: p.LngIn},
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.ClockOut != nil {
		clockOut := p.ClockOut.In(loc)
		out.ClockOut = &clockOut
		if minutes, err := CalculateWorkDuration(p.ClockIn, *p.ClockOut); err == nil {
			out.WorkDuration = &minutes
			out.WorkDurationFormatted = FormatDuration(minutes)
		}
	}
	if p.LatOut != nil && p.LngOut != nil {
		out.LocationOut = &Location{Lat: *p.LatOut, Lng: *p.LngOut}
	}
	return out
}

// CalculateWorkDuration returns whole minutes between clock-in and clock-out, rounded to the
// nearest minute.
func CalculateWorkDuration(clockIn, clockOut time.Time) (int, error) {
	elapsed := clockOut.Sub(clockIn)
	if elapsed < 0 {
		return 0, fmt.Errorf("%w: in=%s out=%s", ErrInvalidDuration, clockIn.Format(time.RFC3339), clockOut.Format(time.RFC3339))
	}
	return int(math.Round(float64(elapsed.Milliseconds()) / 60000)), nil
}

// FormatDuration renders minutes as "Nh Mm", dropping a zero part. Zero renders as "0m".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	hours := minutes / 60
	mins := minutes % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
}

// DetermineStatus compares the clock-in instant with the cutoff on the same local day.
// cutoff is a wall-clock time of day (8*time.Hour is 08:00:00), so DST transitions do not
// shift it. Strictly after the cutoff is late.
func DetermineStatus(clockIn time.Time, cutoff time.Duration) Status {
	if clockIn.After(CutoffOn(clockIn, cutoff)) {
		return StatusLate
	}
	return StatusOntime
}

// CutoffOn builds the cutoff wall-clock time on t's calendar day in t's location.
func CutoffOn(t time.Time, cutoff time.Duration) time.Time {
	y, m, d := t.Date()
	h := int(cutoff / time.Hour)
	mi := int(cutoff % time.Hour / time.Minute)
	sec := int(cutoff % time.Minute / time.Second)
	return time.Date(y, m, d, h, mi, sec, 0, t.Location())
}

// DayBounds returns [midnight, next midnight) of t's calendar day in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds returns [first of month, first of next month) in loc.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// WeekBounds returns [Monday 00:00, next Monday 00:00) of t's week.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	start, _ := DayBounds(t)
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
