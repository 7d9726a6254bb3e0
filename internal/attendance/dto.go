package attendance

import (
	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/core/common/validation"
	"github.com/frahmantamala/attendance-management/internal/geofence"
)

// ClockDTO is the body accepted by clock-in and clock-out.
type ClockDTO struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (d ClockDTO) Validate() *internal.AppError {
	return validation.ValidateCoordinates(d.Lat, d.Lng)
}

func (d ClockDTO) Point() geofence.Point {
	return geofence.Point{Lat: *d.Lat, Lng: *d.Lng}
}

type HistoryFilter struct {
	Month int
	Year  int
	Page  int
	Limit int
}

type Period string

const (
	PeriodMonth Period = "month"
	PeriodWeek  Period = "week"
)

type TodayStatus struct {
	Date        string    `json:"date"`
	HasClockIn  bool      `json:"hasClockIn"`
	HasClockOut bool      `json:"hasClockOut"`
	Presence    *Presence `json:"presence"`
}
