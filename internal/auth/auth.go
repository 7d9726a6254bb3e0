package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents JWT token claims
type Claims struct {
	UserID int64              `json:"user_id"`
	Role   userDatamodel.Role `json:"role"`
	Type   TokenType          `json:"type"`
	jwt.RegisteredClaims
}

type AuthTokens struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Profile is the public view of a user account.
type Profile struct {
	ID                  int64              `json:"id"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	Role                userDatamodel.Role `json:"role"`
	CreatedAt           time.Time          `json:"createdAt"`
	UnreadNotifications *int64             `json:"unreadNotifications,omitempty"`
}

func ProfileFromDataModel(u *userDatamodel.User) *Profile {
	return &Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type Session struct {
	User   *Profile   `json:"user"`
	Tokens AuthTokens `json:"-"`
}

// DeviceInfo is recorded next to each refresh token.
type DeviceInfo struct {
	UserAgent string
	IPAddress string
}

func (d DeviceInfo) Type() string {
	return DetectDeviceType(d.UserAgent)
}

// DetectDeviceType classifies a User-Agent as mobile, tablet or desktop.
func DetectDeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")):
		return "tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

// HashToken is the lookup key under which refresh tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrUserNotFound   = errors.New("user not found")
	ErrTokenNotFound  = errors.New("refresh token not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrResetNotFound  = errors.New("reset code not found")
)
