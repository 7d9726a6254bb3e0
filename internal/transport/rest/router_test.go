package rest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/transport/rest"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rest Suite")
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

var _ = Describe("Router", func() {
	var lg = slog.New(slog.NewTextHandler(io.Discard, nil))

	build := func(db rest.Pinger) *chi.Mux {
		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, db, rest.Handlers{}, rest.RouterOptions{
			AllowedOrigins: "*",
			Metrics:        internal.MetricsConfig{Enabled: true, Path: "/metrics"},
		}, lg)
		return router
	}

	serve := func(router http.Handler, method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	It("answers ping with a trace id", func() {
		rec := serve(build(fakePinger{}), http.MethodGet, "/api/v1/ping")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"status":"OK"`))
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})

	It("reports a healthy database", func() {
		rec := serve(build(fakePinger{}), http.MethodGet, "/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"status":"healthy"`))
	})

	It("reports an unreachable database", func() {
		rec := serve(build(fakePinger{err: errors.New("connection refused")}), http.MethodGet, "/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(rec.Body.String()).To(ContainSubstring("connection refused"))
	})

	It("serves the embedded OpenAPI document", func() {
		rec := serve(build(fakePinger{}), http.MethodGet, "/openapi.yml")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("openapi: 3.0.3"))
	})

	It("exposes metrics when enabled", func() {
		rec := serve(build(fakePinger{}), http.MethodGet, "/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
