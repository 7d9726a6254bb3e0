package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/attendance-management/internal"
	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
	"github.com/frahmantamala/attendance-management/internal/core/events"
	"github.com/frahmantamala/attendance-management/internal/geofence"
	"github.com/frahmantamala/attendance-management/internal/observability"
)

// Repository is the persistence contract for presence rows. Create must report a violated
// (user_id, date) uniqueness as internal.ErrAlreadyClockedIn, and RecordClockOut must only
// update a row whose clock_out is still null, reporting internal.ErrAlreadyClockedOut otherwise.
type Repository interface {
	Create(ctx context.Context, p *presenceDatamodel.Presence) error
	FindByUserAndDay(ctx context.Context, userID int64, start, end time.Time) (*presenceDatamodel.Presence, error)
	RecordClockOut(ctx context.Context, id int64, at time.Time, lat, lng float64) error
	ListByUser(ctx context.Context, userID int64, from, to *time.Time, limit, offset int) ([]*presenceDatamodel.Presence, int64, error)
	ListInRange(ctx context.Context, userID int64, from, to time.Time) ([]*presenceDatamodel.Presence, error)
}

// FenceProvider lists the configured office geofences.
type FenceProvider interface {
	Fences(ctx context.Context) ([]geofence.Fence, error)
}

type Service struct {
	repo      Repository
	fences    FenceProvider
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
	cutoff    time.Duration
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

// WithLateCutoff sets the local time of day (8*time.Hour is 08:00:00) after which a clock-in is late.
func WithLateCutoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cutoff = d
		}
	}
}

func NewService(repo Repository, fences FenceProvider, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		fences:    fences,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		loc:       time.Local,
		cutoff:    8 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) ClockIn(ctx context.Context, userID int64, dto ClockDTO) (*Presence, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := s.localNow()
	start, end := DayBounds(now)

	existing, err := s.repo.FindByUserAndDay(ctx, userID, start, end)
	if err != nil && !errors.Is(err, ErrPresenceNotFound) {
		s.logger.Error("failed to look up today's presence", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to clock in", err)
	}
	if existing != nil {
		s.logger.Warn("duplicate clock in rejected", "user_id", userID, "presence_id", existing.ID)
		return nil, internal.ErrAlreadyClockedIn
	}

	point := dto.Point()
	if err := s.checkGeofence(ctx, userID, point); err != nil {
		return nil, err
	}

	status := DetermineStatus(now, s.cutoff)
	record := &presenceDatamodel.Presence{
		UserID:    userID,
		Date:      start,
		ClockIn:   now,
		LatIn:     point.Lat,
		LngIn:     point.Lng,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, internal.ErrAlreadyClockedIn) {
			s.logger.Warn("concurrent clock in rejected by unique constraint", "user_id", userID)
			return nil, internal.ErrAlreadyClockedIn
		}
		s.logger.Error("failed to create presence", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to clock in", err)
	}

	observability.RecordClockIn(string(status))
	s.publish(ctx, events.NewClockedInEvent(record.ID, userID, string(status), now, point.Lat, point.Lng))

	s.logger.Info("clock in recorded",
		"user_id", userID,
		"presence_id", record.ID,
		"status", status)

	return FromDataModel(record, s.loc), nil
}

func (s *Service) ClockOut(ctx context.Context, userID int64, dto ClockDTO) (*Presence, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := s.localNow()
	start, end := DayBounds(now)

	record, err := s.repo.FindByUserAndDay(ctx, userID, start, end)
	if errors.Is(err, ErrPresenceNotFound) {
		return nil, internal.ErrNoClockInToday
	}
	if err != nil {
		s.logger.Error("failed to look up today's presence", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to clock out", err)
	}
	if record.ClockOut != nil {
		return nil, internal.ErrAlreadyClockedOut
	}

	point := dto.Point()
	if err := s.checkGeofence(ctx, userID, point); err != nil {
		return nil, err
	}

	minutes, err := CalculateWorkDuration(record.ClockIn, now)
	if err != nil {
		// clock went backwards between clock-in and now
		s.logger.Error("refusing clock out before clock in", "error", err, "user_id", userID, "presence_id", record.ID)
		return nil, internal.NewInternalError("failed to clock out", err)
	}

	if err := s.repo.RecordClockOut(ctx, record.ID, now, point.Lat, point.Lng); err != nil {
		if errors.Is(err, internal.ErrAlreadyClockedOut) {
			return nil, internal.ErrAlreadyClockedOut
		}
		s.logger.Error("failed to record clock out", "error", err, "user_id", userID, "presence_id", record.ID)
		return nil, internal.NewInternalError("failed to clock out", err)
	}

	record.ClockOut = &now
	record.LatOut = &point.Lat
	record.LngOut = &point.Lng
	record.UpdatedAt = now

	observability.RecordClockOut()
	s.publish(ctx, events.NewClockedOutEvent(record.ID, userID, now, minutes, point.Lat, point.Lng))

	s.logger.Info("clock out recorded",
		"user_id", userID,
		"presence_id", record.ID,
		"work_duration", minutes)

	return FromDataModel(record, s.loc), nil
}

func (s *Service) checkGeofence(ctx context.Context, userID int64, point geofence.Point) error {
	fences, err := s.fences.Fences(ctx)
	if err != nil {
		s.logger.Error("failed to load office locations", "error", err)
		return internal.NewInternalError("failed to load office location", err)
	}

	result, err := geofence.Locate(point, fences)
	if errors.Is(err, geofence.ErrNoFence) {
		s.logger.Warn("attendance attempted without a configured office location", "user_id", userID)
		return internal.ErrGeofenceNotConfigured
	}
	if err != nil {
		return internal.NewInternalError("failed to validate location", err)
	}
	if !result.Within {
		s.logger.Info("attendance rejected outside geofence",
			"user_id", userID,
			"distance", result.Distance,
			"office", result.Fence.Name)
		return internal.NewOutsideGeofenceError(result.Distance)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("failed to publish attendance event", "error", err, "event_type", evt.EventType())
	}
}

func (s *Service) Today(ctx context.Context, userID int64) (*TodayStatus, error) {
	now := s.localNow()
	start, end := DayBounds(now)

	status := &TodayStatus{Date: start.Format("2006-01-02")}
	record, err := s.repo.FindByUserAndDay(ctx, userID, start, end)
	if errors.Is(err, ErrPresenceNotFound) {
		return status, nil
	}
	if err != nil {
		s.logger.Error("failed to get today's presence", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to get today's presence", err)
	}

	status.Presence = FromDataModel(record, s.loc)
	status.HasClockIn = true
	status.HasClockOut = record.ClockOut != nil
	return status, nil
}

func (s *Service) History(ctx context.Context, userID int64, filter HistoryFilter) ([]*Presence, int64, error) {
	from, to, err := s.historyRange(filter)
	if err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	rows, total, err := s.repo.ListByUser(ctx, userID, from, to, filter.Limit, offset)
	if err != nil {
		s.logger.Error("failed to list presence history", "error", err, "user_id", userID)
		return nil, 0, internal.NewInternalError("failed to get presence history", err)
	}

	out := make([]*Presence, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r, s.loc))
	}
	return out, total, nil
}

func (s *Service) historyRange(filter HistoryFilter) (*time.Time, *time.Time, error) {
	if filter.Month == 0 && filter.Year == 0 {
		return nil, nil, nil
	}
	if filter.Month < 0 || filter.Month > 12 {
		return nil, nil, internal.NewValidationFieldError("month", "month must be between 1 and 12", internal.ErrCodeInvalidDate)
	}
	year := filter.Year
	if year == 0 {
		year = s.localNow().Year()
	}
	if year < 1970 || year > 9999 {
		return nil, nil, internal.NewValidationFieldError("year", "year is out of range", internal.ErrCodeInvalidDate)
	}

	var from, to time.Time
	if filter.Month == 0 {
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
		to = from.AddDate(1, 0, 0)
	} else {
		from, to = MonthBounds(year, time.Month(filter.Month), s.loc)
	}
	return &from, &to, nil
}

// Summary aggregates the caller's current month or week.
func (s *Service) Summary(ctx context.Context, userID int64, period Period) (*Summary, error) {
	now := s.localNow()

	var from, to time.Time
	switch period {
	case PeriodWeek:
		from, to = WeekBounds(now)
	case PeriodMonth, "":
		from, to = MonthBounds(now.Year(), now.Month(), s.loc)
	default:
		return nil, internal.NewValidationFieldError("period", "period must be one of: month, week", internal.ErrCodeInvalidPeriod)
	}

	summary, err := s.SummaryInRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Service) SummaryInRange(ctx context.Context, userID int64, from, to time.Time) (Summary, error) {
	rows, err := s.repo.ListInRange(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("failed to load presences for summary", "error", err, "user_id", userID)
		return Summary{}, internal.NewInternalError("failed to compute attendance summary", err)
	}

	summary := Summarize(rows)
	summary.From = from
	summary.To = to
	if summary.Skipped > 0 {
		s.logger.Warn("presence rows with clock out before clock in ignored", "user_id", userID, "count", summary.Skipped)
	}
	return summary, nil
}
