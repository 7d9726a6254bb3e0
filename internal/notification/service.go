package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/attendance-management/internal"
	notificationDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/notification"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	Create(ctx context.Context, n *notificationDatamodel.Notification) error
	CreateBatch(ctx context.Context, rows []*notificationDatamodel.Notification) error
	List(ctx context.Context, userID int64, unreadOnly bool, typ string, limit, offset int) ([]*notificationDatamodel.Notification, int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	CountByType(ctx context.Context, userID int64) ([]TypeCount, error)
	MarkAsRead(ctx context.Context, userID, id int64, at time.Time) (*notificationDatamodel.Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	Delete(ctx context.Context, userID, id int64) error
	DeleteRead(ctx context.Context, userID int64) (int64, error)
	DeleteStale(ctx context.Context, readBefore, now time.Time) (int64, error)
}

// RecipientLister resolves broadcast targets. An empty role means every user.
type RecipientLister interface {
	ListUserIDs(ctx context.Context, role userDatamodel.Role) ([]int64, error)
}

type Service struct {
	repo       RepositoryAPI
	recipients RecipientLister
	logger     *slog.Logger
	now        func() time.Time
	loc        *time.Location
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

func NewService(repo RepositoryAPI, recipients RecipientLister, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		recipients: recipients,
		logger:     logger,
		now:        time.Now,
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Notify(ctx context.Context, p Params) (*Notification, error) {
	row, err := p.toDataModel(s.now())
	if err != nil {
		return nil, internal.NewInternalError("failed to encode notification data", err)
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create notification", "error", err, "user_id", p.UserID, "title", p.Title)
		return nil, internal.NewInternalError("failed to create notification", err)
	}

	s.logger.Debug("notification created", "notification_id", row.ID, "user_id", p.UserID, "type", row.Type)
	return FromDataModel(row), nil
}

// NotifyMany writes all notifications in one batch and returns how many were written.
func (s *Service) NotifyMany(ctx context.Context, params []Params) (int, error) {
	if len(params) == 0 {
		return 0, nil
	}

	now := s.now()
	rows := make([]*notificationDatamodel.Notification, 0, len(params))
	for _, p := range params {
		row, err := p.toDataModel(now)
		if err != nil {
			return 0, internal.NewInternalError("failed to encode notification data", err)
		}
		rows = append(rows, row)
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		s.logger.Error("failed to create notifications", "error", err, "count", len(rows))
		return 0, internal.NewInternalError("failed to create notifications", err)
	}
	return len(rows), nil
}

func (s *Service) List(ctx context.Context, userID int64, filter ListFilter) (*ListResponse, int64, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, internal.NewValidationFieldError("type", "unknown notification type", internal.ErrCodeValidationFailed)
	}

	rows, total, err := s.repo.List(ctx, userID, filter.UnreadOnly, string(filter.Type), filter.Limit, filter.Offset())
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", userID)
		return nil, 0, internal.NewInternalError("failed to get notifications", err)
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", "error", err, "user_id", userID)
		return nil, 0, internal.NewInternalError("failed to get notifications", err)
	}

	out := make([]*Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return &ListResponse{Notifications: out, UnreadCount: unread}, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	counts, err := s.repo.CountByType(ctx, userID)
	if err != nil {
		s.logger.Error("failed to aggregate notifications", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to get notification stats", err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to get notification stats", err)
	}

	stats := &Stats{Unread: unread, ByType: make(map[string]int64, len(counts))}
	for _, c := range counts {
		stats.ByType[c.Type] = c.Count
		stats.Total += c.Count
	}
	stats.Read = stats.Total - stats.Unread
	return stats, nil
}

func (s *Service) MarkAsRead(ctx context.Context, userID, id int64) (*Notification, error) {
	row, err := s.repo.MarkAsRead(ctx, userID, id, s.now())
	if errors.Is(err, ErrNotFound) {
		return nil, internal.ErrNotificationNotFound
	}
	if err != nil {
		s.logger.Error("failed to mark notification as read", "error", err, "user_id", userID, "notification_id", id)
		return nil, internal.NewInternalError("failed to update notification", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		s.logger.Error("failed to mark notifications as read", "error", err, "user_id", userID)
		return 0, internal.NewInternalError("failed to update notifications", err)
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	err := s.repo.Delete(ctx, userID, id)
	if errors.Is(err, ErrNotFound) {
		return internal.ErrNotificationNotFound
	}
	if err != nil {
		s.logger.Error("failed to delete notification", "error", err, "user_id", userID, "notification_id", id)
		return internal.NewInternalError("failed to delete notification", err)
	}
	return nil
}

func (s *Service) ClearRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.DeleteRead(ctx, userID)
	if err != nil {
		s.logger.Error("failed to clear read notifications", "error", err, "user_id", userID)
		return 0, internal.NewInternalError("failed to delete notifications", err)
	}
	return n, nil
}

// CleanOld removes read notifications older than TTL and anything already expired.
func (s *Service) CleanOld(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.repo.DeleteStale(ctx, now.Add(-TTL), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("old notifications cleaned", "count", n)
	}
	return n, nil
}

func (s *Service) Broadcast(ctx context.Context, dto BroadcastDTO) (*BroadcastResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ids := dto.UserIDs
	var err error
	if len(ids) == 0 {
		ids, err = s.recipients.ListUserIDs(ctx, dto.Role)
	}
	if err != nil {
		s.logger.Error("failed to resolve broadcast recipients", "error", err, "role", dto.Role)
		return nil, internal.NewInternalError("failed to broadcast notification", err)
	}

	params := make([]Params, 0, len(ids))
	for _, id := range ids {
		params = append(params, Params{
			UserID:   id,
			Title:    dto.Title,
			Message:  dto.Message,
			Type:     dto.Type,
			Priority: dto.Priority,
			Data:     map[string]interface{}{"broadcast": true},
		})
	}

	n, err := s.NotifyMany(ctx, params)
	if err != nil {
		return nil, err
	}

	s.logger.Info("notification broadcast", "recipients", n, "role", dto.Role)
	return &BroadcastResult{RecipientCount: n}, nil
}
