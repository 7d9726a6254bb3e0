package auth

import "time"

type RefreshToken struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"column:user_id;not null;index"`
	TokenHash  string    `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	UserAgent  string    `gorm:"column:user_agent"`
	IPAddress  string    `gorm:"column:ip_address"`
	DeviceType string    `gorm:"column:device_type"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsValid reports whether the row can still mint access tokens at now.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.IsActive && now.Before(t.ExpiresAt)
}

type PasswordReset struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"column:user_id;not null;index"`
	Email     string     `gorm:"column:email;not null;index"`
	Code      string     `gorm:"column:code;type:varchar(6);not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	IsUsed    bool       `gorm:"column:is_used;not null;default:false"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (PasswordReset) TableName() string {
	return "password_resets"
}

func (p *PasswordReset) IsValid(now time.Time) bool {
	return !p.IsUsed && now.Before(p.ExpiresAt)
}
