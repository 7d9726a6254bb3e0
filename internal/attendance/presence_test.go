package attendance_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/attendance-management/internal/attendance"
	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
)

var _ = Describe("Presence helpers", func() {
	DescribeTable("FormatDuration",
		func(minutes int, expected string) {
			Expect(attendance.FormatDuration(minutes)).To(Equal(expected))
		},
		Entry("zero", 0, "0m"),
		Entry("minutes only", 30, "30m"),
		Entry("whole hour", 60, "1h"),
		Entry("hours and minutes", 90, "1h 30m"),
		Entry("full day", 540, "9h"),
	)

	Describe("CalculateWorkDuration", func() {
		It("rounds to whole minutes", func() {
			in := time.Date(2024, 3, 11, 8, 0, 0, 0, wib)
			minutes, err := attendance.CalculateWorkDuration(in, in.Add(9*time.Hour+29*time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(minutes).To(Equal(540))
		})

		It("refuses a clock-out before the clock-in", func() {
			in := time.Date(2024, 3, 11, 8, 0, 0, 0, wib)
			_, err := attendance.CalculateWorkDuration(in, in.Add(-time.Minute))
			Expect(errors.Is(err, attendance.ErrInvalidDuration)).To(BeTrue())
		})
	})

	DescribeTable("DetermineStatus",
		func(h, m, s int, expected attendance.Status) {
			at := time.Date(2024, 3, 11, h, m, s, 0, wib)
			Expect(attendance.DetermineStatus(at, 8*time.Hour)).To(Equal(expected))
		},
		Entry("early", 7, 0, 0, attendance.StatusOntime),
		Entry("one second before", 7, 59, 59, attendance.StatusOntime),
		Entry("exactly on the cutoff", 8, 0, 0, attendance.StatusOntime),
		Entry("one second after", 8, 0, 1, attendance.StatusLate),
		Entry("afternoon", 13, 0, 0, attendance.StatusLate),
	)

	Describe("DetermineStatus across daylight saving transitions", func() {
		var ny *time.Location

		BeforeEach(func() {
			var err error
			ny, err = time.LoadLocation("America/New_York")
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps 08:00 local on the spring-forward day", func() {
			Expect(attendance.DetermineStatus(time.Date(2024, 3, 10, 8, 30, 0, 0, ny), 8*time.Hour)).To(Equal(attendance.StatusLate))
			Expect(attendance.DetermineStatus(time.Date(2024, 3, 10, 7, 59, 59, 0, ny), 8*time.Hour)).To(Equal(attendance.StatusOntime))
		})

		It("keeps 08:00 local on the fall-back day", func() {
			Expect(attendance.DetermineStatus(time.Date(2024, 11, 3, 7, 30, 0, 0, ny), 8*time.Hour)).To(Equal(attendance.StatusOntime))
			Expect(attendance.DetermineStatus(time.Date(2024, 11, 3, 8, 0, 1, 0, ny), 8*time.Hour)).To(Equal(attendance.StatusLate))
		})

		It("builds the cutoff from wall-clock fields", func() {
			at := time.Date(2024, 3, 10, 12, 0, 0, 0, ny)
			Expect(attendance.CutoffOn(at, 8*time.Hour+15*time.Minute+30*time.Second)).To(Equal(time.Date(2024, 3, 10, 8, 15, 30, 0, ny)))
		})
	})

	It("starts the week on Monday", func() {
		sunday := time.Date(2024, 3, 17, 12, 0, 0, 0, wib)
		from, to := attendance.WeekBounds(sunday)
		Expect(from).To(Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, wib)))
		Expect(to).To(Equal(time.Date(2024, 3, 18, 0, 0, 0, 0, wib)))
	})

	Describe("Summarize", func() {
		at := func(day, h, m int) time.Time { return time.Date(2024, 3, day, h, m, 0, 0, wib) }
		closed := func(day int, in, out time.Time, status attendance.Status) *presenceDatamodel.Presence {
			return &presenceDatamodel.Presence{UserID: 1, Date: at(day, 0, 0), ClockIn: in, ClockOut: &out, Status: status}
		}

		It("returns zeros for no records", func() {
			s := attendance.Summarize(nil)
			Expect(s.TotalDays).To(BeZero())
			Expect(s.AverageWorkHours).To(BeZero())
		})

		It("counts open records as days without work minutes", func() {
			rows := []*presenceDatamodel.Presence{
				closed(11, at(11, 8, 0), at(11, 17, 0), attendance.StatusOntime),
				{UserID: 1, Date: at(12, 0, 0), ClockIn: at(12, 8, 30), Status: attendance.StatusLate},
			}
			s := attendance.Summarize(rows)
			Expect(s.TotalDays).To(Equal(2))
			Expect(s.LateDays).To(Equal(1))
			Expect(s.TotalWorkMinutes).To(Equal(540))
			Expect(s.TotalWorkHours).To(Equal(9.0))
			Expect(s.AverageWorkHours).To(Equal(4.5))
		})

		It("skips records whose clock-out precedes the clock-in", func() {
			rows := []*presenceDatamodel.Presence{
				closed(11, at(11, 8, 0), at(11, 7, 0), attendance.StatusOntime),
				closed(12, at(12, 8, 0), at(12, 8, 20), attendance.StatusOntime),
			}
			s := attendance.Summarize(rows)
			Expect(s.Skipped).To(Equal(1))
			Expect(s.TotalWorkMinutes).To(Equal(20))
			Expect(s.TotalWorkHours).To(Equal(0.33))
		})
	})
})
