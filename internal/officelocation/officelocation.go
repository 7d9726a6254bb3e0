package officelocation

import (
	"errors"
	"time"

	officeDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/officelocation"
	"github.com/frahmantamala/attendance-management/internal/geofence"
)

const (
	DefaultRadius = 100
	MinRadius     = 10
	MaxRadius     = 1000
)

var ErrNotFound = errors.New("office location not found")

type OfficeLocation struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Radius    int       `json:"radius"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func FromDataModel(o *officeDatamodel.OfficeLocation) *OfficeLocation {
	return &OfficeLocation{
		ID:        o.ID,
		Name:      o.Name,
		Address:   o.Address,
		Lat:       o.Lat,
		Lng:       o.Lng,
		Radius:    o.Radius,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (o *OfficeLocation) Fence() geofence.Fence {
	return geofence.Fence{
		ID:     o.ID,
		Name:   o.Name,
		Center: geofence.Point{Lat: o.Lat, Lng: o.Lng},
		Radius: o.Radius,
	}
}

// ValidationResult answers "would a clock at this point be accepted".
type ValidationResult struct {
	Within   bool            `json:"within"`
	Distance int             `json:"distance"`
	Office   *OfficeLocation `json:"office"`
}
