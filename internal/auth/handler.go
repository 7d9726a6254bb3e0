package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/transport"
	"github.com/frahmantamala/attendance-management/pkg/logger"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO, device DeviceInfo) (*Session, error)
	Login(ctx context.Context, dto LoginDTO, device DeviceInfo) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID int64) (int64, error)
	Me(ctx context.Context, userID int64) (*Profile, error)
	ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO, currentRefreshToken string) error
	ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) error
	Authenticate(ctx context.Context, accessToken string) (*internal.AuthUser, error)
}

type CookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Cookies CookieOptions
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, cookies CookieOptions) *Handler {
	if cookies.AccessTTL <= 0 {
		cookies.AccessTTL = 15 * time.Minute
	}
	if cookies.RefreshTTL <= 0 {
		cookies.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Cookies:     cookies,
	}
}

type sessionResponse struct {
	User         *Profile `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func deviceFromRequest(r *http.Request) DeviceInfo {
	return DeviceInfo{UserAgent: r.UserAgent(), IPAddress: transport.ClientIP(r)}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	session, err := h.Service.Register(r.Context(), dto, deviceFromRequest(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.setSessionCookies(w, session.Tokens)
	h.WriteSuccess(w, http.StatusCreated, "User registered successfully", sessionResponse{
		User:         session.User,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	session, err := h.Service.Login(r.Context(), dto, deviceFromRequest(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.setSessionCookies(w, session.Tokens)
	h.WriteSuccess(w, http.StatusOK, "Login successful", sessionResponse{
		User:         session.User,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFromRequest(r)
	if token == "" {
		h.HandleServiceError(w, r, internal.ErrInvalidRefreshToken)
		return
	}

	tokens, err := h.Service.Refresh(r.Context(), token)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.setCookie(w, AccessTokenCookie, tokens.AccessToken, h.Cookies.AccessTTL)
	h.WriteSuccess(w, http.StatusOK, "Token refreshed", map[string]string{"accessToken": tokens.AccessToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), h.refreshTokenFromRequest(r)); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	h.WriteSuccess(w, http.StatusOK, "Logout successful", nil)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	if _, err := h.Service.LogoutAll(r.Context(), user.ID); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	h.WriteSuccess(w, http.StatusOK, "Logged out from all devices", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	profile, err := h.Service.Me(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Profile retrieved", map[string]*Profile{"user": profile})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	var dto ChangePasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), user.ID, dto, h.refreshTokenFromRequest(r)); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var dto ForgotPasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ForgotPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "A password reset code has been sent. Check your email or notifications.", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.clearSessionCookies(w)
	h.WriteSuccess(w, http.StatusOK, "Password has been reset. Please log in with your new password.", nil)
}

// AuthMiddleware accepts a Bearer token or the access token cookie and puts the user in the
// request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			if c, err := r.Cookie(AccessTokenCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			h.HandleServiceError(w, r, internal.ErrMissingToken)
			return
		}

		user, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.Logger.Debug("auth middleware: token rejected", "error", err, "ip", transport.ClientIP(r))
			h.HandleServiceError(w, r, err)
			return
		}

		ctx := internal.ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var dto RefreshTokenDTO
		if err := h.DecodeJSON(r, &dto); err == nil {
			return dto.RefreshToken
		}
	}
	return ""
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, tokens AuthTokens) {
	h.setCookie(w, AccessTokenCookie, tokens.AccessToken, h.Cookies.AccessTTL)
	h.setCookie(w, RefreshTokenCookie, tokens.RefreshToken, h.Cookies.RefreshTTL)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.setCookie(w, AccessTokenCookie, "", -1)
	h.setCookie(w, RefreshTokenCookie, "", -1)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
