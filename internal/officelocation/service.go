package officelocation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/core/common/validation"
	officeDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/officelocation"
	"github.com/frahmantamala/attendance-management/internal/geofence"
)

// RepositoryAPI reports a duplicate name as internal.ErrOfficeLocationExists and a missing row as ErrNotFound.
type RepositoryAPI interface {
	List(ctx context.Context) ([]*officeDatamodel.OfficeLocation, error)
	GetByID(ctx context.Context, id int64) (*officeDatamodel.OfficeLocation, error)
	Create(ctx context.Context, o *officeDatamodel.OfficeLocation) error
	Update(ctx context.Context, o *officeDatamodel.OfficeLocation) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*OfficeLocation, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list office locations", "error", err)
		return nil, internal.NewInternalError("failed to get office locations", err)
	}

	out := make([]*OfficeLocation, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*OfficeLocation, error) {
	row, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, internal.ErrOfficeLocationNotFound
	}
	if err != nil {
		s.logger.Error("failed to get office location", "error", err, "office_location_id", id)
		return nil, internal.NewInternalError("failed to get office location", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, dto CreateDTO) (*OfficeLocation, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row := &officeDatamodel.OfficeLocation{
		Name:    dto.Name,
		Address: dto.Address,
		Lat:     *dto.Lat,
		Lng:     *dto.Lng,
		Radius:  dto.RadiusOrDefault(),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, internal.ErrOfficeLocationExists) {
			return nil, internal.ErrOfficeLocationExists
		}
		s.logger.Error("failed to create office location", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create office location", err)
	}

	s.logger.Info("office location created", "office_location_id", row.ID, "name", row.Name, "radius", row.Radius)
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateDTO) (*OfficeLocation, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, internal.ErrOfficeLocationNotFound
	}
	if err != nil {
		s.logger.Error("failed to get office location", "error", err, "office_location_id", id)
		return nil, internal.NewInternalError("failed to update office location", err)
	}

	if dto.Name != nil {
		row.Name = *dto.Name
	}
	if dto.Address != nil {
		row.Address = *dto.Address
	}
	if dto.Lat != nil {
		row.Lat = *dto.Lat
	}
	if dto.Lng != nil {
		row.Lng = *dto.Lng
	}
	if dto.Radius != nil {
		row.Radius = *dto.Radius
	}

	if err := s.repo.Update(ctx, row); err != nil {
		if errors.Is(err, internal.ErrOfficeLocationExists) {
			return nil, internal.ErrOfficeLocationExists
		}
		s.logger.Error("failed to update office location", "error", err, "office_location_id", id)
		return nil, internal.NewInternalError("failed to update office location", err)
	}

	s.logger.Info("office location updated", "office_location_id", id)
	return FromDataModel(row), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return internal.ErrOfficeLocationNotFound
	}
	if err != nil {
		s.logger.Error("failed to delete office location", "error", err, "office_location_id", id)
		return internal.NewInternalError("failed to delete office location", err)
	}

	s.logger.Info("office location deleted", "office_location_id", id)
	return nil
}

// Fences adapts the stored offices for attendance geofence checks.
func (s *Service) Fences(ctx context.Context) ([]geofence.Fence, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	fences := make([]geofence.Fence, 0, len(rows))
	for _, r := range rows {
		fences = append(fences, FromDataModel(r).Fence())
	}
	return fences, nil
}

// Validate reports whether the point would pass the attendance geofence.
func (s *Service) Validate(ctx context.Context, dto ValidateLocationDTO) (*ValidationResult, error) {
	if err := validation.ValidateCoordinates(dto.Lat, dto.Lng); err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list office locations", "error", err)
		return nil, internal.NewInternalError("failed to validate location", err)
	}

	fences := make([]geofence.Fence, 0, len(rows))
	byID := make(map[int64]*officeDatamodel.OfficeLocation, len(rows))
	for _, r := range rows {
		fences = append(fences, FromDataModel(r).Fence())
		byID[r.ID] = r
	}

	result, err := geofence.Locate(geofence.Point{Lat: *dto.Lat, Lng: *dto.Lng}, fences)
	if errors.Is(err, geofence.ErrNoFence) {
		return nil, internal.ErrGeofenceNotConfigured
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to validate location", err)
	}

	return &ValidationResult{
		Within:   result.Within,
		Distance: result.Distance,
		Office:   FromDataModel(byID[result.Fence.ID]),
	}, nil
}
