package officelocation

import (
	"strings"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/core/common/validation"
)

type CreateDTO struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Radius  *int     `json:"radius"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
}

func (d CreateDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	validator.Field("name", d.Name).Required().MinLength(3).MaxLength(50)
	validator.Field("lat", d.Lat).Required().Between(-90, 90, internal.ErrCodeInvalidCoordinate)
	validator.Field("lng", d.Lng).Required().Between(-180, 180, internal.ErrCodeInvalidCoordinate)
	if d.Radius != nil {
		validator.Field("radius", *d.Radius).Between(MinRadius, MaxRadius, internal.ErrCodeInvalidRadius)
	}
	return validator.Validate()
}

func (d CreateDTO) RadiusOrDefault() int {
	if d.Radius == nil {
		return DefaultRadius
	}
	return *d.Radius
}

// UpdateDTO carries a partial update; nil fields are left untouched.
type UpdateDTO struct {
	Name    *string  `json:"name"`
	Address *string  `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Radius  *int     `json:"radius"`
}

func (d *UpdateDTO) Normalize() {
	if d.Name != nil {
		v := strings.TrimSpace(*d.Name)
		d.Name = &v
	}
	if d.Address != nil {
		v := strings.TrimSpace(*d.Address)
		d.Address = &v
	}
}

func (d UpdateDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	if d.Name != nil {
		validator.Field("name", *d.Name).Required().MinLength(3).MaxLength(50)
	}
	validator.Field("lat", d.Lat).Between(-90, 90, internal.ErrCodeInvalidCoordinate)
	validator.Field("lng", d.Lng).Between(-180, 180, internal.ErrCodeInvalidCoordinate)
	if d.Radius != nil {
		validator.Field("radius", *d.Radius).Between(MinRadius, MaxRadius, internal.ErrCodeInvalidRadius)
	}
	return validator.Validate()
}

type ValidateLocationDTO struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}
