package report_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/attendance"
	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
	"github.com/frahmantamala/attendance-management/internal/report"
	"github.com/frahmantamala/attendance-management/internal/transport"
)

func TestReport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Report Suite")
}

type fakeRepository struct {
	employees []report.Employee
	presences []*presenceDatamodel.Presence
	counts    report.PresenceCounts
	active    int64
	err       error

	lastFilter report.PresenceFilter
	lastFrom   time.Time
	lastTo     time.Time
}

func (f *fakeRepository) CountEmployees(ctx context.Context) (int64, error) {
	return int64(len(f.employees)), f.err
}

func (f *fakeRepository) CountPresences(ctx context.Context, from, to time.Time) (report.PresenceCounts, error) {
	f.lastFrom, f.lastTo = from, to
	return f.counts, f.err
}

func (f *fakeRepository) CountActiveUsers(ctx context.Context, from, to time.Time) (int64, error) {
	return f.active, f.err
}

func (f *fakeRepository) ListPresences(ctx context.Context, filter report.PresenceFilter) ([]*report.PresenceRecord, int64, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []*report.PresenceRecord
	for _, p := range f.presences {
		out = append(out, &report.PresenceRecord{Presence: *p, UserName: "Budi Santoso", UserEmail: "budi@example.com"})
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepository) ListEmployees(ctx context.Context) ([]report.Employee, error) {
	return f.employees, f.err
}

func (f *fakeRepository) PresencesInRange(ctx context.Context, from, to time.Time) ([]*presenceDatamodel.Presence, error) {
	f.lastFrom, f.lastTo = from, to
	return f.presences, f.err
}

var _ = Describe("WorkingDaysInMonth", func() {
	DescribeTable("counts weekdays",
		func(year int, month time.Month, expected int) {
			Expect(report.WorkingDaysInMonth(year, month)).To(Equal(expected))
		},
		Entry("March 2024", 2024, time.March, 21),
		Entry("leap February 2024", 2024, time.February, 21),
		Entry("February 2023", 2023, time.February, 20),
		Entry("June 2024 starting on Saturday", 2024, time.June, 20),
		Entry("September 2024 starting on Sunday", 2024, time.September, 21),
	)
})

var _ = Describe("Report Service", func() {
	var (
		repo *fakeRepository
		svc  *report.Service
		ctx  context.Context
		wib  = time.FixedZone("WIB", 7*60*60)
		now  time.Time
	)

	presence := func(userID int64, day int, in, out string, status attendance.Status) *presenceDatamodel.Presence {
		date := time.Date(2024, 3, day, 0, 0, 0, 0, wib)
		parse := func(hhmm string) time.Time {
			t, err := time.ParseInLocation("2006-01-02 15:04", date.Format("2006-01-02")+" "+hhmm, wib)
			Expect(err).NotTo(HaveOccurred())
			return t
		}
		p := &presenceDatamodel.Presence{UserID: userID, Date: date, ClockIn: parse(in), Status: status}
		if out != "" {
			o := parse(out)
			p.ClockOut = &o
		}
		return p
	}

	BeforeEach(func() {
		repo = &fakeRepository{}
		ctx = context.Background()
		now = time.Date(2024, 3, 20, 9, 0, 0, 0, wib)
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = report.NewService(repo, lg, report.WithClock(func() time.Time { return now }), report.WithLocation(wib))
	})

	Describe("Stats", func() {
		BeforeEach(func() {
			for i := int64(1); i <= 10; i++ {
				repo.employees = append(repo.employees, report.Employee{ID: i})
			}
			repo.counts = report.PresenceCounts{Total: 150, Ontime: 120, Late: 30}
			repo.active = 8
		})

		It("derives rates from the month's counts", func() {
			stats, err := svc.Stats(ctx, 3, 2024)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalEmployees).To(Equal(int64(10)))
			Expect(stats.ActiveToday).To(Equal(int64(8)))
			Expect(stats.WorkingDays).To(Equal(21))
			Expect(stats.AttendanceRate).To(Equal(71.43))
			Expect(stats.OntimePercentage).To(Equal(80.0))
			Expect(stats.LatePercentage).To(Equal(20.0))
			Expect(repo.lastFrom).To(Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, wib)))
			Expect(repo.lastTo).To(Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, wib)))
		})

		It("defaults to the current month", func() {
			stats, err := svc.Stats(ctx, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Month).To(Equal(3))
			Expect(stats.Year).To(Equal(2024))
		})

		It("reports zero rates when there is nothing to divide by", func() {
			repo.employees = nil
			repo.counts = report.PresenceCounts{}

			stats, err := svc.Stats(ctx, 3, 2024)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.AttendanceRate).To(BeZero())
			Expect(stats.OntimePercentage).To(BeZero())
		})

		It("rejects an invalid month", func() {
			_, err := svc.Stats(ctx, 13, 2024)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("hides repository failures", func() {
			repo.err = errors.New("connection refused")

			_, err := svc.Stats(ctx, 3, 2024)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})

	Describe("Presences", func() {
		It("turns a date into that local day's range", func() {
			_, _, err := svc.Presences(ctx, report.PresenceFilter{Date: "2024-03-15", Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(*repo.lastFilter.From).To(Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, wib)))
			Expect(*repo.lastFilter.To).To(Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, wib)))
		})

		It("adds the work duration to each row", func() {
			repo.presences = []*presenceDatamodel.Presence{presence(1, 15, "08:00", "17:30", attendance.StatusOntime)}

			rows, total, err := svc.Presences(ctx, report.PresenceFilter{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(*rows[0].WorkDuration).To(Equal(570))
			Expect(rows[0].WorkDurationFormatted).To(Equal("9h 30m"))
			Expect(rows[0].UserName).To(Equal("Budi Santoso"))
		})

		It("rejects malformed filters", func() {
			_, _, err := svc.Presences(ctx, report.PresenceFilter{Date: "15/03/2024"})
			Expect(err).To(HaveOccurred())

			_, _, err = svc.Presences(ctx, report.PresenceFilter{Status: "absent"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Monthly", func() {
		BeforeEach(func() {
			repo.employees = []report.Employee{
				{ID: 1, Name: "Budi Santoso", Email: "budi@example.com"},
				{ID: 2, Name: "Dewi Lestari", Email: "dewi@example.com"},
			}
			repo.presences = []*presenceDatamodel.Presence{
				presence(1, 4, "07:55", "17:00", attendance.StatusOntime),
				presence(1, 5, "08:20", "17:20", attendance.StatusLate),
				presence(1, 6, "07:50", "", attendance.StatusOntime),
			}
		})

		It("summarizes each employee including those without records", func() {
			rep, err := svc.Monthly(ctx, 3, 2024)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.WorkingDays).To(Equal(21))
			Expect(rep.Employees).To(HaveLen(2))

			budi := rep.Employees[0]
			Expect(budi.TotalDays).To(Equal(3))
			Expect(budi.OntimeDays).To(Equal(2))
			Expect(budi.LateDays).To(Equal(1))
			Expect(budi.TotalWorkMinutes).To(Equal(545 + 540))
			Expect(budi.AbsentDays).To(Equal(18))

			dewi := rep.Employees[1]
			Expect(dewi.TotalDays).To(BeZero())
			Expect(dewi.AbsentDays).To(Equal(21))
		})

		It("renders a PDF document", func() {
			var buf bytes.Buffer
			Expect(svc.WriteMonthlyPDF(ctx, 3, 2024, &buf)).To(Succeed())
			Expect(buf.Len()).To(BeNumerically(">", 500))
			Expect(buf.String()).To(HavePrefix("%PDF-"))
		})
	})

	Describe("Handler", func() {
		var h *report.Handler

		BeforeEach(func() {
			repo.employees = []report.Employee{{ID: 1, Name: "Budi Santoso", Email: "budi@example.com"}}
			h = report.NewHandler(transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil))), svc)
		})

		It("serves the monthly PDF as an attachment", func() {
			rec := httptest.NewRecorder()
			h.MonthlyPDF(rec, httptest.NewRequest(http.MethodGet, "/admin/reports/monthly.pdf?month=3&year=2024", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/pdf"))
			Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("attendance-2024-03.pdf"))
			Expect(rec.Body.String()).To(HavePrefix("%PDF-"))
		})

		It("answers JSON errors for a bad month", func() {
			rec := httptest.NewRecorder()
			h.MonthlyPDF(rec, httptest.NewRequest(http.MethodGet, "/admin/reports/monthly.pdf?month=14", nil))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		})

		It("rejects a malformed userId filter", func() {
			rec := httptest.NewRecorder()
			h.Presences(rec, httptest.NewRequest(http.MethodGet, "/admin/presences?userId=abc", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
