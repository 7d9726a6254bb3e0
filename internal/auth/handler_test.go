package auth_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/auth"
	authPostgres "github.com/frahmantamala/attendance-management/internal/auth/postgres"
	"github.com/frahmantamala/attendance-management/internal/transport"
)

var _ = Describe("Auth Handler", func() {
	var (
		router http.Handler
		now    time.Time
	)

	BeforeEach(func() {
		db := openTestDB()
		now = time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

		svc := auth.NewService(
			authPostgres.NewUserRepository(db),
			authPostgres.NewTokenRepository(db),
			authPostgres.NewResetRepository(db),
			auth.NewJWTTokenGenerator("access-secret", "refresh-secret", 0, 0).WithClock(clock),
			&recordingNotifier{},
			&fakeMailer{},
			lg,
			auth.WithClock(clock),
			auth.WithBcryptCost(bcrypt.MinCost),
		)
		base := transport.NewBaseHandler(lg)
		h := auth.NewHandler(base, svc, auth.CookieOptions{Secure: true})
		rbac := auth.NewRBACAuthorization(base, lg)

		r := chi.NewRouter()
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/logout", h.Logout)
		r.With(h.AuthMiddleware).Get("/auth/me", h.Me)
		r.With(h.AuthMiddleware, rbac.RequireAdmin()).Get("/admin/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		router = r
	})

	do := func(method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	cookieNamed := func(rec *httptest.ResponseRecorder, name string) *http.Cookie {
		for _, c := range rec.Result().Cookies() {
			if c.Name == name {
				return c
			}
		}
		return nil
	}

	registerUser := func(role string) *httptest.ResponseRecorder {
		rec := do(http.MethodPost, "/auth/register", map[string]string{
			"name":     "Budi Santoso",
			"email":    "budi@example.com",
			"password": "secret123",
			"role":     role,
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))
		return rec
	}

	It("sets httpOnly strict cookies on register", func() {
		rec := registerUser("employee")

		access := cookieNamed(rec, auth.AccessTokenCookie)
		refresh := cookieNamed(rec, auth.RefreshTokenCookie)
		Expect(access).NotTo(BeNil())
		Expect(refresh).NotTo(BeNil())
		Expect(access.HttpOnly).To(BeTrue())
		Expect(access.Secure).To(BeTrue())
		Expect(access.SameSite).To(Equal(http.SameSiteStrictMode))
		Expect(access.MaxAge).To(Equal(int((15 * time.Minute).Seconds())))
		Expect(refresh.MaxAge).To(Equal(int((7 * 24 * time.Hour).Seconds())))

		var env transport.Envelope
		Expect(json.NewDecoder(rec.Body).Decode(&env)).To(Succeed())
		Expect(env.Success).To(BeTrue())
		data := env.Data.(map[string]interface{})
		Expect(data["accessToken"]).To(Equal(access.Value))
		Expect(data["user"].(map[string]interface{})["email"]).To(Equal("budi@example.com"))
	})

	It("authenticates with the access token cookie", func() {
		rec := registerUser("employee")

		me := do(http.MethodGet, "/auth/me", nil, cookieNamed(rec, auth.AccessTokenCookie))
		Expect(me.Code).To(Equal(http.StatusOK))
	})

	It("authenticates with a bearer token", func() {
		rec := registerUser("employee")

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+cookieNamed(rec, auth.AccessTokenCookie).Value)
		me := httptest.NewRecorder()
		router.ServeHTTP(me, req)
		Expect(me.Code).To(Equal(http.StatusOK))
	})

	It("answers 401 without a token", func() {
		rec := do(http.MethodGet, "/auth/me", nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		var env transport.Envelope
		Expect(json.NewDecoder(rec.Body).Decode(&env)).To(Succeed())
		Expect(env.Code).To(Equal(internal.ErrCodeMissingToken))
	})

	It("answers 401 with a token-expired code once the access token lapses", func() {
		rec := registerUser("employee")
		now = now.Add(time.Hour)

		me := do(http.MethodGet, "/auth/me", nil, cookieNamed(rec, auth.AccessTokenCookie))
		Expect(me.Code).To(Equal(http.StatusUnauthorized))
		var env transport.Envelope
		Expect(json.NewDecoder(me.Body).Decode(&env)).To(Succeed())
		Expect(env.Code).To(Equal(internal.ErrCodeTokenExpired))
	})

	It("keeps employees out of admin routes", func() {
		rec := registerUser("employee")

		res := do(http.MethodGet, "/admin/ping", nil, cookieNamed(rec, auth.AccessTokenCookie))
		Expect(res.Code).To(Equal(http.StatusForbidden))
	})

	It("lets admins into admin routes", func() {
		rec := registerUser("admin")

		res := do(http.MethodGet, "/admin/ping", nil, cookieNamed(rec, auth.AccessTokenCookie))
		Expect(res.Code).To(Equal(http.StatusNoContent))
	})

	It("refreshes from a token in the body", func() {
		rec := registerUser("employee")
		refresh := cookieNamed(rec, auth.RefreshTokenCookie).Value

		res := do(http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh})
		Expect(res.Code).To(Equal(http.StatusOK))
		Expect(cookieNamed(res, auth.AccessTokenCookie)).NotTo(BeNil())
	})

	It("clears both cookies and ends the session on logout", func() {
		rec := registerUser("employee")
		refresh := cookieNamed(rec, auth.RefreshTokenCookie)

		res := do(http.MethodPost, "/auth/logout", nil, refresh)
		Expect(res.Code).To(Equal(http.StatusOK))
		Expect(cookieNamed(res, auth.AccessTokenCookie).MaxAge).To(BeNumerically("<", 0))
		Expect(cookieNamed(res, auth.RefreshTokenCookie).MaxAge).To(BeNumerically("<", 0))

		again := do(http.MethodPost, "/auth/refresh", nil, refresh)
		Expect(again.Code).To(Equal(http.StatusUnauthorized))
	})

	It("maps a duplicate email to 409", func() {
		registerUser("employee")

		rec := do(http.MethodPost, "/auth/register", map[string]string{
			"name":     "Budi Again",
			"email":    "budi@example.com",
			"password": "secret123",
		})
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})
})
