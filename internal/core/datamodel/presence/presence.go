package presence

import "time"

type Status string

const (
	StatusOntime Status = "ontime"
	StatusLate   Status = "late"
)

// Presence is one attendance row per user and calendar day. The composite unique index on
// (user_id, date) is what rejects a concurrent second clock-in.
type Presence struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"column:user_id;not null;uniqueIndex:idx_presences_user_date"`
	Date      time.Time  `gorm:"column:date;not null;uniqueIndex:idx_presences_user_date"`
	ClockIn   time.Time  `gorm:"column:clock_in;not null"`
	ClockOut  *time.Time `gorm:"column:clock_out"`
	LatIn     float64    `gorm:"column:lat_in;not null"`
	LngIn     float64    `gorm:"column:lng_in;not null"`
	LatOut    *float64   `gorm:"column:lat_out"`
	LngOut    *float64   `gorm:"column:lng_out"`
	Status    Status     `gorm:"column:status;type:varchar(10);not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Presence) TableName() string {
	return "presences"
}
