// Package geofence decides whether a reported GPS fix lies inside an office's allowed radius.
package geofence

import (
	"errors"
	"math"
)

const EarthRadiusMeters = 6371000.0

var ErrNoFence = errors.New("geofence: no office location configured")

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a finite coordinate within lat [-90,90] and lng [-180,180].
func (p Point) Valid() bool {
	for _, v := range []float64{p.Lat, p.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Fence is a circular boundary around an office, radius in meters.
type Fence struct {
	ID     int64
	Name   string
	Center Point
	Radius int
}

type Result struct {
	Within   bool
	Distance int
	Fence    Fence
}

// Distance is the haversine great-circle distance between a and b, rounded to the meter.
func Distance(a, b Point) int {
	return int(math.Round(distanceMeters(a, b)))
}

func distanceMeters(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Check evaluates p against a single fence. The boundary itself counts as inside.
func Check(p Point, f Fence) Result {
	d := Distance(p, f.Center)
	return Result{
		Within:   d <= f.Radius,
		Distance: d,
		Fence:    f,
	}
}

// Locate evaluates p against every fence. When p is inside one or more fences the closest
// containing fence wins; otherwise the result describes the nearest fence and Within is false.
func Locate(p Point, fences []Fence) (Result, error) {
	if len(fences) == 0 {
		return Result{}, ErrNoFence
	}

	var nearest, inside Result
	haveInside := false
	for i, f := range fences {
		r := Check(p, f)
		if i == 0 || r.Distance < nearest.Distance {
			nearest = r
		}
		if r.Within && (!haveInside || r.Distance < inside.Distance) {
			inside = r
			haveInside = true
		}
	}

	if haveInside {
		return inside, nil
	}
	return nearest, nil
}
