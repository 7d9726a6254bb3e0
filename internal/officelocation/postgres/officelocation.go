package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/attendance-management/internal"
	officeDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/officelocation"
	"github.com/frahmantamala/attendance-management/internal/officelocation"
	"gorm.io/gorm"
)

type OfficeLocationRepository struct {
	db *gorm.DB
}

func NewOfficeLocationRepository(db *gorm.DB) officelocation.RepositoryAPI {
	return &OfficeLocationRepository{db: db}
}

func (r *OfficeLocationRepository) List(ctx context.Context) ([]*officeDatamodel.OfficeLocation, error) {
	var rows []*officeDatamodel.OfficeLocation
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *OfficeLocationRepository) GetByID(ctx context.Context, id int64) (*officeDatamodel.OfficeLocation, error) {
	var row officeDatamodel.OfficeLocation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, officelocation.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *OfficeLocationRepository) Create(ctx context.Context, o *officeDatamodel.OfficeLocation) error {
	return translate(r.db.WithContext(ctx).Create(o).Error)
}

func (r *OfficeLocationRepository) Update(ctx context.Context, o *officeDatamodel.OfficeLocation) error {
	return translate(r.db.WithContext(ctx).Save(o).Error)
}

func (r *OfficeLocationRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&officeDatamodel.OfficeLocation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return officelocation.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrOfficeLocationExists
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return internal.ErrOfficeLocationExists
	}
	return err
}
