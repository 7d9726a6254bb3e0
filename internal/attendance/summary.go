package attendance

import (
	"time"

	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
)

type Summary struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	TotalDays        int       `json:"totalDays"`
	OntimeDays       int       `json:"ontimeDays"`
	LateDays         int       `json:"lateDays"`
	TotalWorkMinutes int       `json:"totalWorkMinutes"`
	TotalWorkHours   float64   `json:"totalWorkHours"`
	AverageWorkHours float64   `json:"averageWorkHours"`
	// Skipped counts completed records whose clock-out precedes clock-in.
	Skipped int `json:"-"`
}

// Summarize aggregates presence rows. Only rows with a clock-out contribute work minutes.
func Summarize(records []*presenceDatamodel.Presence) Summary {
	var s Summary
	for _, r := range records {
		s.TotalDays++
		if r.Status == StatusLate {
			s.LateDays++
		} else {
			s.OntimeDays++
		}
		if r.ClockOut == nil {
			continue
		}
		minutes, err := CalculateWorkDuration(r.ClockIn, *r.ClockOut)
		if err != nil {
			s.Skipped++
			continue
		}
		s.TotalWorkMinutes += minutes
	}

	s.TotalWorkHours = round2(float64(s.TotalWorkMinutes) / 60)
	if s.TotalDays > 0 {
		s.AverageWorkHours = round2(s.TotalWorkHours / float64(s.TotalDays))
	}
	return s
}
