package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/attendance-management/internal"
	authDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/auth"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/attendance-management/internal/email"
	"github.com/frahmantamala/attendance-management/internal/notification"
	"github.com/frahmantamala/attendance-management/internal/observability"
)

const DefaultResetCodeTTL = 15 * time.Minute

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// TokenRepository stores refresh tokens by hash. ReplaceForUser deactivates every active token
// of the user and stores t in one transaction.
type TokenRepository interface {
	Create(ctx context.Context, t *authDatamodel.RefreshToken) error
	ReplaceForUser(ctx context.Context, userID int64, t *authDatamodel.RefreshToken) error
	FindActiveByHash(ctx context.Context, hash string) (*authDatamodel.RefreshToken, error)
	DeactivateByHash(ctx context.Context, hash string) error
	DeactivateAllForUser(ctx context.Context, userID int64, exceptHash string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResetRepository stores password reset codes. Redeem replaces the password and marks a
// matching unused, unexpired code as used atomically, so a code is spent only on success and
// only once.
type ResetRepository interface {
	ReplaceForUser(ctx context.Context, p *authDatamodel.PasswordReset) error
	Redeem(ctx context.Context, email, code, passwordHash string, now time.Time) (*authDatamodel.PasswordReset, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, p notification.Params) (*notification.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

type Service struct {
	users        UserRepository
	tokens       TokenRepository
	resets       ResetRepository
	tokenGen     TokenGenerator
	notifier     Notifier
	mailer       email.Sender
	logger       *slog.Logger
	bcryptCost   int
	resetCodeTTL time.Duration
	workStart    string
	now          func() time.Time
}

type Option func(*Service)

func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithResetCodeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resetCodeTTL = d
		}
	}
}

// WithWorkStart sets the start-of-day time quoted in the welcome email.
func WithWorkStart(hhmm string) Option {
	return func(s *Service) {
		if hhmm != "" {
			s.workStart = hhmm
		}
	}
}

func NewService(users UserRepository, tokens TokenRepository, resets ResetRepository, tokenGen TokenGenerator,
	notifier Notifier, mailer email.Sender, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:        users,
		tokens:       tokens,
		resets:       resets,
		tokenGen:     tokenGen,
		notifier:     notifier,
		mailer:       mailer,
		logger:       logger,
		bcryptCost:   bcrypt.DefaultCost,
		resetCodeTTL: DefaultResetCodeTTL,
		workStart:    "08:00",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO, device DeviceInfo) (*Session, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, dto.Email); err == nil {
		return nil, internal.ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		s.logger.Error("failed to look up email", "error", err)
		return nil, internal.NewInternalError("failed to register user", err)
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to register user", err)
	}

	user := &userDatamodel.User{
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: hash,
		Role:         dto.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, internal.ErrEmailTaken
		}
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to register user", err)
	}

	tokens, err := s.issueTokens(ctx, user, device, false)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Params{
		UserID:   user.ID,
		Title:    "Welcome to the Attendance System",
		Message:  fmt.Sprintf("Hello %s, your account has been created. Remember to clock in before %s every working day.", user.Name, s.workStart),
		Type:     notification.TypeInfo,
		Priority: notification.PriorityMedium,
		Data:     map[string]interface{}{"event": "registered"},
	})
	s.sendWelcomeEmail(ctx, user)

	observability.RecordAuthEvent("register", true)
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return &Session{User: ProfileFromDataModel(user), Tokens: tokens}, nil
}

func (s *Service) Login(ctx context.Context, dto LoginDTO, device DeviceInfo) (*Session, error) {
	dto.Email = normalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, dto.Email)
	if errors.Is(err, ErrUserNotFound) {
		observability.RecordAuthEvent("login", false)
		return nil, internal.ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("failed to look up user for login", "error", err)
		return nil, internal.NewInternalError("failed to login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		observability.RecordAuthEvent("login", false)
		s.logger.Info("login rejected", "user_id", user.ID, "ip", device.IPAddress)
		return nil, internal.ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user, device, true)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.Params{
		UserID:   user.ID,
		Title:    "New Login",
		Message:  fmt.Sprintf("Your account was signed in from a %s device.", device.Type()),
		Type:     notification.TypeInfo,
		Priority: notification.PriorityLow,
		Data: map[string]interface{}{
			"event":      "login",
			"ipAddress":  device.IPAddress,
			"deviceType": device.Type(),
		},
	})

	observability.RecordAuthEvent("login", true)
	s.logger.Info("user logged in", "user_id", user.ID, "ip", device.IPAddress, "device_type", device.Type())
	return &Session{User: ProfileFromDataModel(user), Tokens: tokens}, nil
}

// issueTokens signs a token pair and stores the refresh token. With replace, every other active
// refresh token of the user is deactivated first, so a login ends all earlier sessions.
func (s *Service) issueTokens(ctx context.Context, user *userDatamodel.User, device DeviceInfo, replace bool) (AuthTokens, error) {
	access, accessExp, err := s.tokenGen.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}
	refresh, refreshExp, err := s.tokenGen.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	row := &authDatamodel.RefreshToken{
		UserID:     user.ID,
		TokenHash:  HashToken(refresh),
		ExpiresAt:  refreshExp,
		IsActive:   true,
		UserAgent:  device.UserAgent,
		IPAddress:  device.IPAddress,
		DeviceType: device.Type(),
	}
	if replace {
		err = s.tokens.ReplaceForUser(ctx, user.ID, row)
	} else {
		err = s.tokens.Create(ctx, row)
	}
	if err != nil {
		s.logger.Error("failed to store refresh token", "error", err, "user_id", user.ID)
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	return AuthTokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh mints a new access token. Every failure is reported as an invalid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	if refreshToken == "" {
		return AuthTokens{}, internal.ErrInvalidRefreshToken
	}

	claims, err := s.tokenGen.ValidateRefreshToken(refreshToken)
	if err != nil {
		observability.RecordAuthEvent("refresh", false)
		return AuthTokens{}, internal.ErrInvalidRefreshToken
	}

	stored, err := s.tokens.FindActiveByHash(ctx, HashToken(refreshToken))
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			s.logger.Error("failed to look up refresh token", "error", err)
		}
		observability.RecordAuthEvent("refresh", false)
		return AuthTokens{}, internal.ErrInvalidRefreshToken
	}
	if !stored.IsValid(s.now()) || stored.UserID != claims.UserID {
		observability.RecordAuthEvent("refresh", false)
		return AuthTokens{}, internal.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		observability.RecordAuthEvent("refresh", false)
		return AuthTokens{}, internal.ErrInvalidRefreshToken
	}

	access, accessExp, err := s.tokenGen.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	observability.RecordAuthEvent("refresh", true)
	return AuthTokens{AccessToken: access, AccessExpiresAt: accessExp}, nil
}

// Logout deactivates the presented refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.DeactivateByHash(ctx, HashToken(refreshToken)); err != nil {
		s.logger.Error("failed to deactivate refresh token", "error", err)
		return internal.NewInternalError("failed to logout", err)
	}
	observability.RecordAuthEvent("logout", true)
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.tokens.DeactivateAllForUser(ctx, userID, "")
	if err != nil {
		s.logger.Error("failed to deactivate refresh tokens", "error", err, "user_id", userID)
		return 0, internal.NewInternalError("failed to logout", err)
	}
	s.logger.Info("all sessions ended", "user_id", userID, "count", n)
	return n, nil
}

func (s *Service) Me(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, internal.ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to get profile", err)
	}

	profile := ProfileFromDataModel(user)
	if s.notifier != nil {
		if unread, err := s.notifier.UnreadCount(ctx, userID); err == nil {
			profile.UnreadNotifications = &unread
		} else {
			s.logger.Warn("failed to count unread notifications", "error", err, "user_id", userID)
		}
	}
	return profile, nil
}

// ChangePassword keeps the caller's current session alive and ends every other one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO, currentRefreshToken string) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return internal.ErrUserNotFound
	}
	if err != nil {
		return internal.NewInternalError("failed to change password", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		return internal.ErrInvalidCurrentPassword
	}

	hash, err := s.HashPassword(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to change password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Error("failed to update password", "error", err, "user_id", userID)
		return internal.NewInternalError("failed to change password", err)
	}

	except := ""
	if currentRefreshToken != "" {
		except = HashToken(currentRefreshToken)
	}
	if _, err := s.tokens.DeactivateAllForUser(ctx, userID, except); err != nil {
		s.logger.Error("failed to end other sessions after password change", "error", err, "user_id", userID)
	}

	s.notify(ctx, notification.Params{
		UserID:   userID,
		Title:    "Password Changed",
		Message:  "Your password was changed. Other devices have been signed out.",
		Type:     notification.TypeSystem,
		Priority: notification.PriorityMedium,
		Data:     map[string]interface{}{"event": "password_changed"},
	})

	observability.RecordAuthEvent("change_password", true)
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// ForgotPassword issues a fresh 6-digit code and invalidates any earlier unused one.
func (s *Service) ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error {
	dto.Email = normalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, dto.Email)
	if errors.Is(err, ErrUserNotFound) {
		return internal.ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("failed to look up user for password reset", "error", err)
		return internal.NewInternalError("failed to request password reset", err)
	}

	code, err := GenerateResetCode()
	if err != nil {
		return internal.NewInternalError("failed to request password reset", err)
	}

	now := s.now()
	reset := &authDatamodel.PasswordReset{
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		ExpiresAt: now.Add(s.resetCodeTTL),
		CreatedAt: now,
	}
	if err := s.resets.ReplaceForUser(ctx, reset); err != nil {
		s.logger.Error("failed to store reset code", "error", err, "user_id", user.ID)
		return internal.NewInternalError("failed to request password reset", err)
	}

	sent := s.sendResetEmail(ctx, user, code)
	if sent {
		s.notify(ctx, notification.Params{
			UserID:   user.ID,
			Title:    "Password Reset Requested",
			Message:  fmt.Sprintf("A password reset code has been sent to your email. It expires in %d minutes.", int(s.resetCodeTTL.Minutes())),
			Type:     notification.TypeSystem,
			Priority: notification.PriorityHigh,
			Data:     map[string]interface{}{"event": "reset_code_sent", "expiresAt": reset.ExpiresAt},
		})
	} else {
		// email is down, the code is delivered in-app instead
		s.notify(ctx, notification.Params{
			UserID:   user.ID,
			Title:    "Password Reset Code",
			Message:  fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(s.resetCodeTTL.Minutes())),
			Type:     notification.TypeSystem,
			Priority: notification.PriorityHigh,
			Data:     map[string]interface{}{"event": "reset_code_fallback", "expiresAt": reset.ExpiresAt},
		})
	}

	observability.RecordAuthEvent("forgot_password", true)
	s.logger.Info("password reset requested", "user_id", user.ID, "email_sent", sent)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	dto.Email = normalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return err
	}

	hash, err := s.HashPassword(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to reset password", err)
	}

	reset, err := s.resets.Redeem(ctx, dto.Email, dto.ResetCode, hash, s.now())
	switch {
	case errors.Is(err, ErrResetNotFound):
		observability.RecordAuthEvent("reset_password", false)
		return internal.ErrInvalidResetCode
	case errors.Is(err, ErrUserNotFound):
		return internal.ErrUserNotFound
	case err != nil:
		s.logger.Error("failed to reset password", "error", err)
		return internal.NewInternalError("failed to reset password", err)
	}

	if _, err := s.tokens.DeactivateAllForUser(ctx, reset.UserID, ""); err != nil {
		s.logger.Error("failed to end sessions after password reset", "error", err, "user_id", reset.UserID)
	}

	s.notify(ctx, notification.Params{
		UserID:   reset.UserID,
		Title:    "Password Reset Successful",
		Message:  "Your password has been reset. Please sign in again on all your devices.",
		Type:     notification.TypeSystem,
		Priority: notification.PriorityHigh,
		Data:     map[string]interface{}{"event": "password_reset"},
	})

	observability.RecordAuthEvent("reset_password", true)
	s.logger.Info("password reset", "user_id", reset.UserID)
	return nil
}

// Authenticate resolves an access token to the principal placed in the request context.
// The user is reloaded so a deleted account cannot keep using an unexpired token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*internal.AuthUser, error) {
	claims, err := s.tokenGen.ValidateAccessToken(accessToken)
	if errors.Is(err, ErrTokenExpired) {
		return nil, internal.ErrTokenExpired
	}
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, internal.ErrInvalidToken
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to authenticate", err)
	}

	return &internal.AuthUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// SweepExpired deletes refresh tokens and reset codes past their expiry.
func (s *Service) SweepExpired(ctx context.Context) (tokens int64, resets int64, err error) {
	now := s.now()
	if tokens, err = s.tokens.DeleteExpired(ctx, now); err != nil {
		return 0, 0, err
	}
	if resets, err = s.resets.DeleteExpired(ctx, now); err != nil {
		return tokens, 0, err
	}
	return tokens, resets, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateResetCode returns a uniformly distributed 6-digit code from crypto/rand.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *Service) notify(ctx context.Context, p notification.Params) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, p); err != nil {
		s.logger.Warn("failed to create notification", "error", err, "user_id", p.UserID, "title", p.Title)
	}
}

func (s *Service) sendWelcomeEmail(ctx context.Context, user *userDatamodel.User) {
	if s.mailer == nil {
		return
	}
	msg, err := email.WelcomeMessage(user.Email, user.Name, string(user.Role), s.workStart)
	if err != nil {
		s.logger.Warn("failed to render welcome email", "error", err, "user_id", user.ID)
		return
	}
	if _, err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
	}
}

func (s *Service) sendResetEmail(ctx context.Context, user *userDatamodel.User, code string) bool {
	if s.mailer == nil {
		return false
	}
	msg, err := email.PasswordResetMessage(user.Email, user.Name, code, s.resetCodeTTL)
	if err != nil {
		s.logger.Warn("failed to render reset email", "error", err, "user_id", user.ID)
		return false
	}
	res, err := s.mailer.Send(ctx, msg)
	if err != nil || !res.Success {
		s.logger.Warn("failed to send reset email", "error", err, "user_id", user.ID)
		return false
	}
	return true
}
