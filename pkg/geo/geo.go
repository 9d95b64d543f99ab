// Package geo holds the great-circle math shared by emergency and garage proximity search.
package geo

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used by every distance computation.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinate is within the legal degree ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude) &&
		p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(a, b Point) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLng := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Bounds is a lat/lng rectangle that fully contains a search circle.
// When WrapsLongitude is set the longitude range crosses the antimeridian and MinLng > MaxLng.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	WrapsLongitude bool
	FullLongitude  bool
}

// BoundsAround returns the bounding rectangle of the spherical cap centred on p with the given radius.
// It is a coarse prefilter; callers must still apply HaversineKm.
func BoundsAround(p Point, radiusKm float64) Bounds {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Latitude, p.Longitude))
	angle := s1.Angle(radiusKm / EarthRadiusKm)
	rect := s2.CapFromCenterAngle(center, angle).RectBound()

	b := Bounds{
		MinLat: rect.Lat.Lo * 180 / math.Pi,
		MaxLat: rect.Lat.Hi * 180 / math.Pi,
	}
	if rect.Lng.IsFull() {
		b.FullLongitude = true
		b.MinLng, b.MaxLng = -180, 180
		return b
	}
	b.MinLng = rect.Lng.Lo * 180 / math.Pi
	b.MaxLng = rect.Lng.Hi * 180 / math.Pi
	b.WrapsLongitude = rect.Lng.IsInverted()
	return b
}

// Contains reports whether p falls inside the rectangle.
func (b Bounds) Contains(p Point) bool {
	if p.Latitude < b.MinLat || p.Latitude > b.MaxLat {
		return false
	}
	if b.FullLongitude {
		return true
	}
	if b.WrapsLongitude {
		return p.Longitude >= b.MinLng || p.Longitude <= b.MaxLng
	}
	return p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}
