package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var colombo = Point{Latitude: 6.9271, Longitude: 79.8612}

func TestHaversineKnownDistances(t *testing.T) {
	kandy := Point{Latitude: 7.2906, Longitude: 80.6337}
	assert.InDelta(t, 94.4, HaversineKm(colombo, kandy), 1.0)
	assert.Equal(t, 0.0, HaversineKm(colombo, colombo))
	assert.InDelta(t, HaversineKm(colombo, kandy), HaversineKm(kandy, colombo), 1e-9)
}

func TestPointValid(t *testing.T) {
	assert.True(t, colombo.Valid())
	assert.True(t, Point{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Point{Latitude: 90.1, Longitude: 0}.Valid())
	assert.False(t, Point{Latitude: 0, Longitude: -180.5}.Valid())
}

func TestBoundsContainEveryPointInsideRadius(t *testing.T) {
	b := BoundsAround(colombo, 5)
	assert.False(t, b.WrapsLongitude)
	assert.True(t, b.Contains(colombo))

	// ~4.4 km north and ~4.9 km east of Colombo.
	assert.True(t, b.Contains(Point{Latitude: 6.967, Longitude: 79.8612}))
	assert.True(t, b.Contains(Point{Latitude: 6.9271, Longitude: 79.906}))
	// ~22 km away
	assert.False(t, b.Contains(Point{Latitude: 7.127, Longitude: 79.8612}))
}

func TestBoundsAcrossAntimeridian(t *testing.T) {
	fiji := Point{Latitude: -17.7, Longitude: 179.99}
	b := BoundsAround(fiji, 10)
	assert.True(t, b.WrapsLongitude)
	assert.True(t, b.Contains(Point{Latitude: -17.7, Longitude: -179.99}))
	assert.False(t, b.Contains(Point{Latitude: -17.7, Longitude: 0}))
}

func TestBoundsNearPole(t *testing.T) {
	b := BoundsAround(Point{Latitude: 89.99, Longitude: 10}, 50)
	assert.True(t, b.FullLongitude)
	assert.True(t, b.Contains(Point{Latitude: 89.9, Longitude: -170}))
}
