package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeClockedIn  = "attendance.clocked_in"
	EventTypeClockedOut = "attendance.clocked_out"
)

type ClockedInEvent struct {
	BaseEvent
	PresenceID int64     `json:"presence_id"`
	UserID     int64     `json:"user_id"`
	Status     string    `json:"status"`
	ClockIn    time.Time `json:"clock_in"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
}

func NewClockedInEvent(presenceID, userID int64, status string, clockIn time.Time, lat, lng float64) *ClockedInEvent {
	return &ClockedInEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeClockedIn,
			Timestamp: clockIn,
			Data: map[string]interface{}{
				"presence_id": presenceID,
				"user_id":     userID,
				"status":      status,
				"clock_in":    clockIn,
				"location":    map[string]float64{"lat": lat, "lng": lng},
			},
		},
		PresenceID: presenceID,
		UserID:     userID,
		Status:     status,
		ClockIn:    clockIn,
		Lat:        lat,
		Lng:        lng,
	}
}

type ClockedOutEvent struct {
	BaseEvent
	PresenceID   int64     `json:"presence_id"`
	UserID       int64     `json:"user_id"`
	ClockOut     time.Time `json:"clock_out"`
	WorkDuration int       `json:"work_duration"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
}

func NewClockedOutEvent(presenceID, userID int64, clockOut time.Time, workDuration int, lat, lng float64) *ClockedOutEvent {
	return &ClockedOutEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeClockedOut,
			Timestamp: clockOut,
			Data: map[string]interface{}{
				"presence_id":   presenceID,
				"user_id":       userID,
				"clock_out":     clockOut,
				"work_duration": workDuration,
				"location":      map[string]float64{"lat": lat, "lng": lng},
			},
		},
		PresenceID:   presenceID,
		UserID:       userID,
		ClockOut:     clockOut,
		WorkDuration: workDuration,
		Lat:          lat,
		Lng:          lng,
	}
}
