package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/attendance"
	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
)

// RepositoryAPI reads aggregate attendance data. Ranges are half-open [from, to).
type RepositoryAPI interface {
	CountEmployees(ctx context.Context) (int64, error)
	CountPresences(ctx context.Context, from, to time.Time) (PresenceCounts, error)
	CountActiveUsers(ctx context.Context, from, to time.Time) (int64, error)
	ListPresences(ctx context.Context, filter PresenceFilter) ([]*PresenceRecord, int64, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	PresencesInRange(ctx context.Context, from, to time.Time) ([]*presenceDatamodel.Presence, error)
}

// PresenceRecord is the raw joined row returned by the repository.
type PresenceRecord struct {
	presenceDatamodel.Presence
	UserName  string
	UserEmail string
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

type Option func(*Service)

func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(repo RepositoryAPI, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// period resolves month/year query values, defaulting each to the current one.
func (s *Service) period(month, year int) (int, int, error) {
	now := s.now().In(s.loc)
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return 0, 0, internal.NewValidationFieldError("month", "month must be between 1 and 12", internal.ErrCodeInvalidDate)
	}
	if year < 1970 || year > 9999 {
		return 0, 0, internal.NewValidationFieldError("year", "year is out of range", internal.ErrCodeInvalidDate)
	}
	return month, year, nil
}

func (s *Service) Stats(ctx context.Context, month, year int) (*Stats, error) {
	month, year, err := s.period(month, year)
	if err != nil {
		return nil, err
	}
	from, to := attendance.MonthBounds(year, time.Month(month), s.loc)
	dayStart, dayEnd := attendance.DayBounds(s.now().In(s.loc))

	employees, err := s.repo.CountEmployees(ctx)
	if err != nil {
		s.logger.Error("failed to count employees", "error", err)
		return nil, internal.NewInternalError("failed to get attendance statistics", err)
	}
	counts, err := s.repo.CountPresences(ctx, from, to)
	if err != nil {
		s.logger.Error("failed to count presences", "error", err, "month", month, "year", year)
		return nil, internal.NewInternalError("failed to get attendance statistics", err)
	}
	active, err := s.repo.CountActiveUsers(ctx, dayStart, dayEnd)
	if err != nil {
		s.logger.Error("failed to count active users", "error", err)
		return nil, internal.NewInternalError("failed to get attendance statistics", err)
	}

	workingDays := WorkingDaysInMonth(year, time.Month(month))
	return &Stats{
		TotalEmployees:   employees,
		ActiveToday:      active,
		TotalPresence:    counts.Total,
		OntimeCount:      counts.Ontime,
		LateCount:        counts.Late,
		WorkingDays:      workingDays,
		AttendanceRate:   percentage(float64(counts.Total), float64(employees)*float64(workingDays)),
		OntimePercentage: percentage(float64(counts.Ontime), float64(counts.Total)),
		LatePercentage:   percentage(float64(counts.Late), float64(counts.Total)),
		Month:            month,
		Year:             year,
	}, nil
}

func (s *Service) Presences(ctx context.Context, filter PresenceFilter) ([]*PresenceRow, int64, error) {
	if filter.Status != "" && filter.Status != attendance.StatusOntime && filter.Status != attendance.StatusLate {
		return nil, 0, internal.NewValidationFieldError("status", "status must be one of: ontime, late", internal.ErrCodeValidationFailed)
	}
	if filter.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", filter.Date, s.loc)
		if err != nil {
			return nil, 0, internal.NewValidationFieldError("date", "date must be formatted as YYYY-MM-DD", internal.ErrCodeInvalidDate)
		}
		from, to := attendance.DayBounds(day)
		filter.From, filter.To = &from, &to
	}

	rows, total, err := s.repo.ListPresences(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list presences", "error", err)
		return nil, 0, internal.NewInternalError("failed to get presences", err)
	}

	out := make([]*PresenceRow, 0, len(rows))
	for _, r := range rows {
		p := attendance.FromDataModel(&r.Presence, s.loc)
		out = append(out, &PresenceRow{
			ID:                    p.ID,
			UserID:                p.UserID,
			UserName:              r.UserName,
			UserEmail:             r.UserEmail,
			Date:                  p.Date,
			ClockIn:               p.ClockIn,
			ClockOut:              p.ClockOut,
			Status:                p.Status,
			WorkDuration:          p.WorkDuration,
			WorkDurationFormatted: p.WorkDurationFormatted,
		})
	}
	return out, total, nil
}

// Monthly summarizes every employee over the month. Employees without records are listed with
// zero counts.
func (s *Service) Monthly(ctx context.Context, month, year int) (*MonthlyReport, error) {
	month, year, err := s.period(month, year)
	if err != nil {
		return nil, err
	}
	from, to := attendance.MonthBounds(year, time.Month(month), s.loc)
	return s.MonthlyInRange(ctx, from, to)
}

func (s *Service) MonthlyInRange(ctx context.Context, from, to time.Time) (*MonthlyReport, error) {
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		s.logger.Error("failed to list employees", "error", err)
		return nil, internal.NewInternalError("failed to build monthly report", err)
	}
	records, err := s.repo.PresencesInRange(ctx, from, to)
	if err != nil {
		s.logger.Error("failed to load presences", "error", err)
		return nil, internal.NewInternalError("failed to build monthly report", err)
	}

	byUser := make(map[int64][]*presenceDatamodel.Presence, len(employees))
	for _, r := range records {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	local := from.In(s.loc)
	workingDays := WorkingDaysInMonth(local.Year(), local.Month())
	report := &MonthlyReport{
		Month:       int(local.Month()),
		Year:        local.Year(),
		WorkingDays: workingDays,
		Employees:   make([]EmployeeMonth, 0, len(employees)),
	}
	for _, e := range employees {
		summary := attendance.Summarize(byUser[e.ID])
		summary.From, summary.To = from, to
		absent := workingDays - summary.TotalDays
		if absent < 0 {
			absent = 0
		}
		report.Employees = append(report.Employees, EmployeeMonth{Employee: e, Summary: summary, AbsentDays: absent})
	}
	return report, nil
}

// WriteMonthlyPDF renders the monthly report as an A4 landscape table.
func (s *Service) WriteMonthlyPDF(ctx context.Context, month, year int, w io.Writer) error {
	report, err := s.Monthly(ctx, month, year)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Attendance Report %04d-%02d", report.Year, report.Month), false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Attendance Report %s %d", time.Month(report.Month), report.Year))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Working days: %d    Employees: %d", report.WorkingDays, len(report.Employees)))
	pdf.Ln(10)

	headers := []string{"Name", "Email", "Present", "On time", "Late", "Absent", "Hours", "Avg hours"}
	widths := []float64{55, 75, 20, 20, 20, 20, 25, 25}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, e := range report.Employees {
		cells := []string{
			e.Name,
			e.Email,
			fmt.Sprintf("%d", e.TotalDays),
			fmt.Sprintf("%d", e.OntimeDays),
			fmt.Sprintf("%d", e.LateDays),
			fmt.Sprintf("%d", e.AbsentDays),
			fmt.Sprintf("%.2f", e.TotalWorkHours),
			fmt.Sprintf("%.2f", e.AverageWorkHours),
		}
		for i, c := range cells {
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		s.logger.Error("failed to render monthly report", "error", err)
		return internal.NewInternalError("failed to render monthly report", err)
	}
	return nil
}
