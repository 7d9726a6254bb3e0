package postgres

import (
	"context"
	"errors"
	"time"

	notificationDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/notification"
	"github.com/frahmantamala/attendance-management/internal/notification"
	"gorm.io/gorm"
)

const batchSize = 200

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.RepositoryAPI {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notificationDatamodel.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, rows []*notificationDatamodel.Notification) error {
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

func (r *NotificationRepository) List(ctx context.Context, userID int64, unreadOnly bool, typ string, limit, offset int) ([]*notificationDatamodel.Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&notificationDatamodel.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if typ != "" {
		q = q.Where("type = ?", typ)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*notificationDatamodel.Notification
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (r *NotificationRepository) CountByType(ctx context.Context, userID int64) ([]notification.TypeCount, error) {
	var counts []notification.TypeCount
	err := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type").
		Scan(&counts).Error
	return counts, err
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID, id int64, at time.Time) (*notificationDatamodel.Notification, error) {
	var row notificationDatamodel.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notification.ErrNotFound
			}
			return err
		}
		if row.IsRead {
			return nil
		}
		row.IsRead = true
		row.ReadAt = &at
		row.UpdatedAt = at
		return tx.Model(&row).Updates(map[string]interface{}{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&notificationDatamodel.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) DeleteRead(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&notificationDatamodel.Notification{})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) DeleteStale(ctx context.Context, readBefore, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(is_read = ? AND created_at < ?) OR expires_at < ?", true, readBefore, now).
		Delete(&notificationDatamodel.Notification{})
	return res.RowsAffected, res.Error
}
