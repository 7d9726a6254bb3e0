package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/attendance-management/internal"
	authDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/auth"
	notificationDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/notification"
	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/attendance-management/internal/transport"
	"github.com/frahmantamala/attendance-management/internal/user"
	userPostgres "github.com/frahmantamala/attendance-management/internal/user/postgres"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

var _ = Describe("User Service", func() {
	var (
		db  *gorm.DB
		svc *user.Service
		ctx context.Context
		lg  *slog.Logger
	)

	seed := func(name, email string, role userDatamodel.Role) *userDatamodel.User {
		u := &userDatamodel.User{Name: name, Email: email, PasswordHash: "x", Role: role}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	count := func(model interface{}, userID int64) int64 {
		var n int64
		Expect(db.Model(model).Where("user_id = ?", userID).Count(&n).Error).To(Succeed())
		return n
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(
			&userDatamodel.User{},
			&presenceDatamodel.Presence{},
			&authDatamodel.RefreshToken{},
			&authDatamodel.PasswordReset{},
			&notificationDatamodel.Notification{},
		)).To(Succeed())

		ctx = context.Background()
		lg = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = user.NewService(userPostgres.NewUserRepository(db), lg)
	})

	Describe("List", func() {
		BeforeEach(func() {
			seed("Siti Rahayu", "siti@example.com", userDatamodel.RoleAdmin)
			for i := 1; i <= 12; i++ {
				seed(fmt.Sprintf("Employee %02d", i), fmt.Sprintf("emp%02d@example.com", i), userDatamodel.RoleEmployee)
			}
		})

		It("paginates and reports the total", func() {
			res, err := svc.List(ctx, user.ListFilter{Page: 2, Limit: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Total).To(Equal(int64(13)))
			Expect(res.Users).To(HaveLen(5))
		})

		It("filters by role", func() {
			res, err := svc.List(ctx, user.ListFilter{Page: 1, Limit: 50, Role: userDatamodel.RoleAdmin})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Total).To(Equal(int64(1)))
			Expect(res.Users[0].Email).To(Equal("siti@example.com"))
		})

		It("searches name and email case-insensitively", func() {
			res, err := svc.List(ctx, user.ListFilter{Page: 1, Limit: 50, Search: "SITI"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Users).To(HaveLen(1))

			res, err = svc.List(ctx, user.ListFilter{Page: 1, Limit: 50, Search: "emp1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Total).To(Equal(int64(3)))
		})

		It("rejects an unknown role filter", func() {
			_, err := svc.List(ctx, user.ListFilter{Page: 1, Limit: 10, Role: "manager"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidRole))
		})
	})

	Describe("Update", func() {
		It("applies only the provided fields", func() {
			u := seed("Budi Santoso", "budi@example.com", userDatamodel.RoleEmployee)
			role := userDatamodel.RoleAdmin

			updated, err := svc.Update(ctx, u.ID, user.UpdateDTO{Role: &role})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Role).To(Equal(userDatamodel.RoleAdmin))
			Expect(updated.Name).To(Equal("Budi Santoso"))

			var stored userDatamodel.User
			Expect(db.First(&stored, u.ID).Error).To(Succeed())
			Expect(stored.Role).To(Equal(userDatamodel.RoleAdmin))
			Expect(stored.PasswordHash).To(Equal("x"))
		})

		It("rejects an email that belongs to someone else", func() {
			seed("Siti Rahayu", "siti@example.com", userDatamodel.RoleAdmin)
			u := seed("Budi Santoso", "budi@example.com", userDatamodel.RoleEmployee)
			email := "SITI@example.com"

			_, err := svc.Update(ctx, u.ID, user.UpdateDTO{Email: &email})
			Expect(errors.Is(err, internal.ErrEmailTaken)).To(BeTrue())
		})

		It("returns not found for a missing user", func() {
			name := "Nobody Here"
			_, err := svc.Update(ctx, 404, user.UpdateDTO{Name: &name})
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("removes the user and everything the user owns", func() {
			admin := seed("Siti Rahayu", "siti@example.com", userDatamodel.RoleAdmin)
			u := seed("Budi Santoso", "budi@example.com", userDatamodel.RoleEmployee)
			other := seed("Dewi Lestari", "dewi@example.com", userDatamodel.RoleEmployee)
			now := time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC)

			for _, id := range []int64{u.ID, other.ID} {
				Expect(db.Create(&presenceDatamodel.Presence{UserID: id, Date: now, ClockIn: now, Status: presenceDatamodel.StatusOntime}).Error).To(Succeed())
				Expect(db.Create(&authDatamodel.RefreshToken{UserID: id, TokenHash: fmt.Sprintf("hash-%d", id), ExpiresAt: now, IsActive: true}).Error).To(Succeed())
				Expect(db.Create(&authDatamodel.PasswordReset{UserID: id, Email: "x", Code: "123456", ExpiresAt: now}).Error).To(Succeed())
				Expect(db.Create(&notificationDatamodel.Notification{UserID: id, Title: "t", Message: "m", Type: "info", Priority: "low", ExpiresAt: now}).Error).To(Succeed())
			}

			Expect(svc.Delete(ctx, admin.ID, u.ID)).To(Succeed())

			_, err := svc.GetByID(ctx, u.ID)
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
			Expect(count(&presenceDatamodel.Presence{}, u.ID)).To(BeZero())
			Expect(count(&authDatamodel.RefreshToken{}, u.ID)).To(BeZero())
			Expect(count(&authDatamodel.PasswordReset{}, u.ID)).To(BeZero())
			Expect(count(&notificationDatamodel.Notification{}, u.ID)).To(BeZero())

			Expect(count(&presenceDatamodel.Presence{}, other.ID)).To(Equal(int64(1)))
			Expect(count(&notificationDatamodel.Notification{}, other.ID)).To(Equal(int64(1)))
		})

		It("refuses to delete the caller's own account", func() {
			admin := seed("Siti Rahayu", "siti@example.com", userDatamodel.RoleAdmin)

			err := svc.Delete(ctx, admin.ID, admin.ID)
			Expect(errors.Is(err, internal.ErrCannotDeleteSelf)).To(BeTrue())
		})

		It("returns not found for a missing user", func() {
			err := svc.Delete(ctx, 1, 404)
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})
	})

	It("lists recipient ids by role", func() {
		admin := seed("Siti Rahayu", "siti@example.com", userDatamodel.RoleAdmin)
		emp := seed("Budi Santoso", "budi@example.com", userDatamodel.RoleEmployee)

		ids, err := svc.ListUserIDs(ctx, userDatamodel.RoleEmployee)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]int64{emp.ID}))

		ids, err = svc.ListUserIDs(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(ConsistOf(admin.ID, emp.ID))

		admins, err := svc.ListAdmins(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(admins).To(HaveLen(1))
	})

	Describe("Handler", func() {
		var (
			router http.Handler
			admin  *userDatamodel.User
		)

		BeforeEach(func() {
			admin = seed("Siti Rahayu", "siti@example.com", userDatamodel.RoleAdmin)
			h := user.NewHandler(transport.NewBaseHandler(lg), svc)

			r := chi.NewRouter()
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					ctx := internal.ContextWithUser(r.Context(), &internal.AuthUser{ID: admin.ID, Role: userDatamodel.RoleAdmin})
					next.ServeHTTP(w, r.WithContext(ctx))
				})
			})
			r.Get("/admin/users", h.List)
			r.Get("/admin/users/{id}", h.Get)
			r.Put("/admin/users/{id}", h.Update)
			r.Delete("/admin/users/{id}", h.Delete)
			router = r
		})

		serve := func(method, path string, body interface{}) (*httptest.ResponseRecorder, transport.Envelope) {
			var buf bytes.Buffer
			if body != nil {
				Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
			var env transport.Envelope
			Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
			return rec, env
		}

		It("lists users with pagination metadata", func() {
			seed("Budi Santoso", "budi@example.com", userDatamodel.RoleEmployee)

			rec, env := serve(http.MethodGet, "/admin/users?limit=1", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(env.Pagination).NotTo(BeNil())
			Expect(env.Pagination.Total).To(Equal(int64(2)))
			Expect(env.Data.(map[string]interface{})["users"]).To(HaveLen(1))
		})

		It("does not expose the password hash", func() {
			rec, _ := serve(http.MethodGet, fmt.Sprintf("/admin/users/%d", admin.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
		})

		It("answers 400 for a malformed id", func() {
			rec, _ := serve(http.MethodGet, "/admin/users/abc", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("answers 400 when deleting oneself", func() {
			rec, env := serve(http.MethodDelete, fmt.Sprintf("/admin/users/%d", admin.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(env.Code).To(Equal(internal.ErrCodeCannotDeleteSelf))
		})

		It("updates a user", func() {
			u := seed("Budi Santoso", "budi@example.com", userDatamodel.RoleEmployee)

			rec, _ := serve(http.MethodPut, fmt.Sprintf("/admin/users/%d", u.ID), map[string]string{"name": "Budi S."})
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
