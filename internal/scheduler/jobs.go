package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/attendance-management/internal/attendance"
	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
	"github.com/frahmantamala/attendance-management/internal/notification"
	"github.com/frahmantamala/attendance-management/internal/user"
)

const (
	JobDailyReminder       = "daily-reminder"
	JobLateArrival         = "late-arrival"
	JobClockOutReminder    = "clock-out-reminder"
	JobWeeklySummary       = "weekly-summary"
	JobMonthlyReport       = "monthly-report"
	JobNotificationCleanup = "notification-cleanup"
	JobAbsentCheck         = "absent-check"
	JobTokenSweep          = "token-sweep"
)

type Directory interface {
	ListEmployees(ctx context.Context) ([]*user.User, error)
	ListAdmins(ctx context.Context) ([]*user.User, error)
}

// PresenceSource returns every user's presence rows dated in [from, to).
type PresenceSource interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]*presenceDatamodel.Presence, error)
}

type Notifier interface {
	NotifyMany(ctx context.Context, params []notification.Params) (int, error)
	CleanOld(ctx context.Context) (int64, error)
}

type CredentialSweeper interface {
	SweepExpired(ctx context.Context) (tokens int64, resets int64, err error)
}

// Tasks holds the attendance jobs. Every job takes the evaluation instant so it can be
// replayed for any day.
type Tasks struct {
	directory Directory
	presences PresenceSource
	notifier  Notifier
	sweeper   CredentialSweeper
	logger    *slog.Logger
}

func NewTasks(directory Directory, presences PresenceSource, notifier Notifier, sweeper CredentialSweeper, logger *slog.Logger) *Tasks {
	return &Tasks{
		directory: directory,
		presences: presences,
		notifier:  notifier,
		sweeper:   sweeper,
		logger:    logger,
	}
}

func (t *Tasks) Jobs() []Job {
	return []Job{
		{Name: JobDailyReminder, Schedule: Workdays(7, 30), Run: t.DailyReminder},
		{Name: JobLateArrival, Schedule: Workdays(8, 15), Run: t.LateArrival},
		{Name: JobClockOutReminder, Schedule: Workdays(17, 0), Run: t.ClockOutReminder},
		{Name: JobWeeklySummary, Schedule: Weekly(time.Friday, 18, 0), Run: t.WeeklySummary},
		{Name: JobMonthlyReport, Schedule: Monthly(1, 10, 0), Run: t.MonthlyReport},
		{Name: JobNotificationCleanup, Schedule: Daily(2, 0), Run: t.NotificationCleanup},
		{Name: JobAbsentCheck, Schedule: Workdays(10, 0), Run: t.AbsentCheck},
		{Name: JobTokenSweep, Schedule: Daily(3, 0), Run: t.TokenSweep},
	}
}

// DailyReminder nudges employees who have no record for now's day.
func (t *Tasks) DailyReminder(ctx context.Context, now time.Time) error {
	absent, err := t.absentEmployees(ctx, now)
	if err != nil {
		return err
	}

	params := make([]notification.Params, 0, len(absent))
	for _, emp := range absent {
		params = append(params, notification.Params{
			UserID:   emp.ID,
			Title:    "Reminder: Clock In",
			Message:  fmt.Sprintf("Hi %s, don't forget to clock in today. Work starts at 08:00.", emp.Name),
			Type:     notification.TypeReminder,
			Priority: notification.PriorityMedium,
			Data: map[string]interface{}{
				"reminderType": "daily_attendance",
				"date":         now.Format("2006-01-02"),
			},
		})
	}
	return t.send(ctx, JobDailyReminder, params)
}

// LateArrival notifies each employee whose record for now's day is late.
func (t *Tasks) LateArrival(ctx context.Context, now time.Time) error {
	rows, err := t.today(ctx, now)
	if err != nil {
		return err
	}

	var params []notification.Params
	for _, p := range rows {
		if p.Status != attendance.StatusLate {
			continue
		}
		at := p.ClockIn.In(now.Location()).Format("15:04")
		params = append(params, notification.Params{
			UserID:   p.UserID,
			Title:    "Late Arrival Recorded",
			Message:  fmt.Sprintf("You clocked in late at %s. Please be on time tomorrow.", at),
			Type:     notification.TypeWarning,
			Priority: notification.PriorityHigh,
			Data: map[string]interface{}{
				"presenceId": p.ID,
				"clockIn":    p.ClockIn,
			},
		})
	}
	return t.send(ctx, JobLateArrival, params)
}

// ClockOutReminder nudges employees who clocked in today but not out.
func (t *Tasks) ClockOutReminder(ctx context.Context, now time.Time) error {
	rows, err := t.today(ctx, now)
	if err != nil {
		return err
	}

	var params []notification.Params
	for _, p := range rows {
		if p.ClockOut != nil {
			continue
		}
		params = append(params, notification.Params{
			UserID:   p.UserID,
			Title:    "Reminder: Clock Out",
			Message:  "Don't forget to clock out before you leave.",
			Type:     notification.TypeReminder,
			Priority: notification.PriorityMedium,
			Data: map[string]interface{}{
				"presenceId":   p.ID,
				"reminderType": "clock_out",
			},
		})
	}
	return t.send(ctx, JobClockOutReminder, params)
}

// WeeklySummary sends every employee a Monday to Friday summary of now's week.
func (t *Tasks) WeeklySummary(ctx context.Context, now time.Time) error {
	monday, _ := attendance.WeekBounds(now)
	saturday := monday.AddDate(0, 0, 5)

	summaries, employees, err := t.summarize(ctx, monday, saturday)
	if err != nil {
		return err
	}

	params := make([]notification.Params, 0, len(employees))
	for _, emp := range employees {
		s := summaries[emp.ID]
		params = append(params, notification.Params{
			UserID: emp.ID,
			Title:  "Weekly Attendance Summary",
			Message: fmt.Sprintf("This week: %d days present, %d on time, %d late. Total work hours: %g.",
				s.TotalDays, s.OntimeDays, s.LateDays, s.TotalWorkHours),
			Type:     notification.TypeInfo,
			Priority: notification.PriorityMedium,
			Data: map[string]interface{}{
				"weekStart":      monday.Format("2006-01-02"),
				"weekEnd":        saturday.AddDate(0, 0, -1).Format("2006-01-02"),
				"totalDays":      s.TotalDays,
				"ontimeDays":     s.OntimeDays,
				"lateDays":       s.LateDays,
				"totalWorkHours": s.TotalWorkHours,
				"summaryType":    "weekly",
			},
		})
	}
	return t.send(ctx, JobWeeklySummary, params)
}

// MonthlyReport sends every employee a summary of the month before now.
func (t *Tasks) MonthlyReport(ctx context.Context, now time.Time) error {
	thisMonth, _ := attendance.MonthBounds(now.Year(), now.Month(), now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	summaries, employees, err := t.summarize(ctx, lastMonth, thisMonth)
	if err != nil {
		return err
	}

	label := lastMonth.Format("January 2006")
	params := make([]notification.Params, 0, len(employees))
	for _, emp := range employees {
		s := summaries[emp.ID]
		params = append(params, notification.Params{
			UserID: emp.ID,
			Title:  "Attendance Report " + label,
			Message: fmt.Sprintf("Report for %s: %d days present, %d on time, %d late.",
				label, s.TotalDays, s.OntimeDays, s.LateDays),
			Type:     notification.TypeInfo,
			Priority: notification.PriorityMedium,
			Data: map[string]interface{}{
				"month":      int(lastMonth.Month()),
				"year":       lastMonth.Year(),
				"totalDays":  s.TotalDays,
				"ontimeDays": s.OntimeDays,
				"lateDays":   s.LateDays,
				"reportType": "monthly",
			},
		})
	}
	return t.send(ctx, JobMonthlyReport, params)
}

func (t *Tasks) NotificationCleanup(ctx context.Context, _ time.Time) error {
	removed, err := t.notifier.CleanOld(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		t.logger.Info("old notifications cleaned", "count", removed)
	}
	return nil
}

// AbsentCheck tells every admin which employees have no record for now's day.
func (t *Tasks) AbsentCheck(ctx context.Context, now time.Time) error {
	absent, err := t.absentEmployees(ctx, now)
	if err != nil {
		return err
	}
	if len(absent) == 0 {
		return nil
	}

	admins, err := t.directory.ListAdmins(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(absent))
	listed := make([]map[string]interface{}, 0, len(absent))
	for _, emp := range absent {
		names = append(names, emp.Name)
		listed = append(listed, map[string]interface{}{
			"id":    emp.ID,
			"name":  emp.Name,
			"email": emp.Email,
		})
	}
	message := fmt.Sprintf("%d employees have not clocked in today: %s", len(absent), strings.Join(names, ", "))

	params := make([]notification.Params, 0, len(admins))
	for _, admin := range admins {
		params = append(params, notification.Params{
			UserID:   admin.ID,
			Title:    "Absent Employees Report",
			Message:  message,
			Type:     notification.TypeWarning,
			Priority: notification.PriorityHigh,
			Data: map[string]interface{}{
				"absentEmployees": listed,
				"date":            now.Format("2006-01-02"),
				"reportType":      "absent_employees",
			},
		})
	}
	return t.send(ctx, JobAbsentCheck, params)
}

func (t *Tasks) TokenSweep(ctx context.Context, _ time.Time) error {
	tokens, resets, err := t.sweeper.SweepExpired(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("expired credentials swept", "refresh_tokens", tokens, "password_resets", resets)
	return nil
}

func (t *Tasks) today(ctx context.Context, now time.Time) ([]*presenceDatamodel.Presence, error) {
	start, end := attendance.DayBounds(now)
	return t.presences.ListBetween(ctx, start, end)
}

func (t *Tasks) absentEmployees(ctx context.Context, now time.Time) ([]*user.User, error) {
	employees, err := t.directory.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := t.today(ctx, now)
	if err != nil {
		return nil, err
	}

	present := make(map[int64]struct{}, len(rows))
	for _, p := range rows {
		present[p.UserID] = struct{}{}
	}
	var absent []*user.User
	for _, emp := range employees {
		if _, ok := present[emp.ID]; !ok {
			absent = append(absent, emp)
		}
	}
	return absent, nil
}

func (t *Tasks) summarize(ctx context.Context, from, to time.Time) (map[int64]attendance.Summary, []*user.User, error) {
	employees, err := t.directory.ListEmployees(ctx)
	if err != nil {
		return nil, nil, err
	}
	rows, err := t.presences.ListBetween(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}

	byUser := make(map[int64][]*presenceDatamodel.Presence)
	for _, p := range rows {
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}
	summaries := make(map[int64]attendance.Summary, len(employees))
	for _, emp := range employees {
		s := attendance.Summarize(byUser[emp.ID])
		if s.Skipped > 0 {
			t.logger.Warn("presence rows skipped in summary", "user_id", emp.ID, "skipped", s.Skipped)
		}
		summaries[emp.ID] = s
	}
	return summaries, employees, nil
}

func (t *Tasks) send(ctx context.Context, job string, params []notification.Params) error {
	if len(params) == 0 {
		return nil
	}
	sent, err := t.notifier.NotifyMany(ctx, params)
	if err != nil {
		return fmt.Errorf("%s: %w", job, err)
	}
	t.logger.Info("notifications sent", "job", job, "count", sent)
	return nil
}
