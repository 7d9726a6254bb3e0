package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/attendance"
	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
	"gorm.io/gorm"
)

// PresenceRepository implements attendance.Repository using GORM
type PresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func (r *PresenceRepository) Create(ctx context.Context, p *presenceDatamodel.Presence) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if isUniqueViolation(err) {
		return internal.ErrAlreadyClockedIn
	}
	return err
}

func (r *PresenceRepository) FindByUserAndDay(ctx context.Context, userID int64, start, end time.Time) (*presenceDatamodel.Presence, error) {
	var p presenceDatamodel.Presence
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attendance.ErrPresenceNotFound
		}
		return nil, err
	}
	return &p, nil
}

// RecordClockOut only touches a row that has not been clocked out yet, so the second of two
// racing clock-outs affects zero rows.
func (r *PresenceRepository) RecordClockOut(ctx context.Context, id int64, at time.Time, lat, lng float64) error {
	res := r.db.WithContext(ctx).
		Model(&presenceDatamodel.Presence{}).
		Where("id = ? AND clock_out IS NULL", id).
		Updates(map[string]interface{}{
			"clock_out":  at,
			"lat_out":    lat,
			"lng_out":    lng,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrAlreadyClockedOut
	}
	return nil
}

func (r *PresenceRepository) ListByUser(ctx context.Context, userID int64, from, to *time.Time, limit, offset int) ([]*presenceDatamodel.Presence, int64, error) {
	q := r.db.WithContext(ctx).Model(&presenceDatamodel.Presence{}).Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date < ?", *to)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*presenceDatamodel.Presence
	err := q.Order("date DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

func (r *PresenceRepository) ListInRange(ctx context.Context, userID int64, from, to time.Time) ([]*presenceDatamodel.Presence, error) {
	var rows []*presenceDatamodel.Presence
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

// ListBetween returns every user's rows in [from, to).
func (r *PresenceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*presenceDatamodel.Presence, error) {
	var rows []*presenceDatamodel.Presence
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("user_id ASC, date ASC").
		Find(&rows).Error
	return rows, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
