package officelocation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/attendance-management/internal"
	officeDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/officelocation"
	"github.com/frahmantamala/attendance-management/internal/officelocation"
	officePostgres "github.com/frahmantamala/attendance-management/internal/officelocation/postgres"
	"github.com/frahmantamala/attendance-management/internal/transport"
)

func TestOfficeLocation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Office Location Suite")
}

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }
func s(v string) *string   { return &v }

var _ = Describe("Office location", func() {
	var (
		db  *gorm.DB
		svc *officelocation.Service
		ctx context.Context
		lg  *slog.Logger
	)

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
		Expect(db.AutoMigrate(&officeDatamodel.OfficeLocation{})).To(Succeed())

		lg = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = officelocation.NewService(officePostgres.NewOfficeLocationRepository(db), lg)
		ctx = context.Background()
	})

	Describe("Service", func() {
		It("creates an office with the default radius", func() {
			office, err := svc.Create(ctx, officelocation.CreateDTO{Name: " Main HQ ", Lat: f(-6.2), Lng: f(106.816666)})
			Expect(err).NotTo(HaveOccurred())
			Expect(office.ID).NotTo(BeZero())
			Expect(office.Name).To(Equal("Main HQ"))
			Expect(office.Radius).To(Equal(officelocation.DefaultRadius))
		})

		It("rejects a duplicate name", func() {
			_, err := svc.Create(ctx, officelocation.CreateDTO{Name: "Main HQ", Lat: f(-6.2), Lng: f(106.8)})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Create(ctx, officelocation.CreateDTO{Name: "Main HQ", Lat: f(-6.3), Lng: f(106.9)})
			Expect(errors.Is(err, internal.ErrOfficeLocationExists)).To(BeTrue())
		})

		It("rejects a radius outside the allowed bounds", func() {
			_, err := svc.Create(ctx, officelocation.CreateDTO{Name: "Main HQ", Lat: f(-6.2), Lng: f(106.8), Radius: i(5)})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("applies a partial update", func() {
			office, err := svc.Create(ctx, officelocation.CreateDTO{Name: "Main HQ", Address: "Jl. Sudirman", Lat: f(-6.2), Lng: f(106.8)})
			Expect(err).NotTo(HaveOccurred())

			updated, err := svc.Update(ctx, office.ID, officelocation.UpdateDTO{Name: s("Head Office"), Radius: i(250)})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Head Office"))
			Expect(updated.Radius).To(Equal(250))
			Expect(updated.Address).To(Equal("Jl. Sudirman"))
		})

		It("reports missing offices", func() {
			_, err := svc.GetByID(ctx, 42)
			Expect(errors.Is(err, internal.ErrOfficeLocationNotFound)).To(BeTrue())
			Expect(errors.Is(svc.Delete(ctx, 42), internal.ErrOfficeLocationNotFound)).To(BeTrue())
		})

		It("exposes stored offices as fences", func() {
			_, err := svc.Create(ctx, officelocation.CreateDTO{Name: "Main HQ", Lat: f(-6.2), Lng: f(106.8), Radius: i(150)})
			Expect(err).NotTo(HaveOccurred())

			fences, err := svc.Fences(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fences).To(HaveLen(1))
			Expect(fences[0].Radius).To(Equal(150))
			Expect(fences[0].Center.Lat).To(Equal(-6.2))
		})

		Describe("Validate", func() {
			It("fails without any office", func() {
				_, err := svc.Validate(ctx, officelocation.ValidateLocationDTO{Lat: f(-6.2), Lng: f(106.8)})
				Expect(errors.Is(err, internal.ErrGeofenceNotConfigured)).To(BeTrue())
			})

			It("accepts a point inside any office and reports the nearest otherwise", func() {
				_, err := svc.Create(ctx, officelocation.CreateDTO{Name: "Main HQ", Lat: f(-6.2), Lng: f(106.8)})
				Expect(err).NotTo(HaveOccurred())
				_, err = svc.Create(ctx, officelocation.CreateDTO{Name: "Branch", Lat: f(-6.9), Lng: f(107.6)})
				Expect(err).NotTo(HaveOccurred())

				result, err := svc.Validate(ctx, officelocation.ValidateLocationDTO{Lat: f(-6.9), Lng: f(107.6)})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Within).To(BeTrue())
				Expect(result.Office.Name).To(Equal("Branch"))

				result, err = svc.Validate(ctx, officelocation.ValidateLocationDTO{Lat: f(-6.201), Lng: f(106.8)})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Within).To(BeFalse())
				Expect(result.Office.Name).To(Equal("Main HQ"))
				Expect(result.Distance).To(BeNumerically("~", 111, 1))
			})
		})
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			h := officelocation.NewHandler(transport.NewBaseHandler(lg), svc)
			router = chi.NewRouter()
			router.Get("/office-locations", h.List)
			router.Post("/office-locations", h.Create)
			router.Get("/office-locations/{id}", h.Get)
			router.Delete("/office-locations/{id}", h.Delete)
			router.Post("/office-locations/validate", h.Validate)
		})

		do := func(method, path string, body interface{}) (*httptest.ResponseRecorder, transport.Envelope) {
			var buf bytes.Buffer
			if body != nil {
				Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
			}
			req := httptest.NewRequest(method, path, &buf)
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			var env transport.Envelope
			Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
			return rec, env
		}

		It("creates and lists offices", func() {
			rec, env := do(http.MethodPost, "/office-locations", map[string]interface{}{
				"name": "Main HQ", "lat": -6.2, "lng": 106.8, "radius": 200,
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(env.Success).To(BeTrue())

			rec, env = do(http.MethodGet, "/office-locations", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(env.Data).To(HaveLen(1))
		})

		It("answers 400 with field errors on invalid input", func() {
			rec, env := do(http.MethodPost, "/office-locations", map[string]interface{}{"name": ""})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(env.Success).To(BeFalse())
			Expect(env.Errors).NotTo(BeEmpty())
		})

		It("answers 404 for an unknown id", func() {
			rec, env := do(http.MethodGet, "/office-locations/99", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(env.Code).To(Equal(internal.ErrCodeOfficeLocationNotFound))
		})

		It("answers 400 for a malformed id", func() {
			rec, _ := do(http.MethodDelete, "/office-locations/abc", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("validates a location", func() {
			_, _ = do(http.MethodPost, "/office-locations", map[string]interface{}{"name": "Main HQ", "lat": -6.2, "lng": 106.8})

			rec, env := do(http.MethodPost, "/office-locations/validate", map[string]interface{}{"lat": -6.2, "lng": 106.8})
			Expect(rec.Code).To(Equal(http.StatusOK))
			data, ok := env.Data.(map[string]interface{})
			Expect(ok).To(BeTrue())
			Expect(data["within"]).To(BeTrue())
		})
	})
})
