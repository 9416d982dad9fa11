package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	assert.Zero(t, Distance(28.7041, 77.1025, 28.7041, 77.1025))
}

func TestDistanceNearbyPoint(t *testing.T) {
	// Roughly one block apart in Delhi; must land well inside 30 m.
	d := Distance(28.7041, 77.1025, 28.7042, 77.1026)
	assert.Less(t, d, 30.0)
	assert.Greater(t, d, 1.0)
}

func TestDistanceFarPoint(t *testing.T) {
	d := Distance(28.7041, 77.1025, 28.9000, 77.3000)
	assert.Greater(t, d, 1000.0)
}

func TestWithinRadiusBoundaryInclusive(t *testing.T) {
	center := struct{ lat, lon float64 }{28.7041, 77.1025}
	point := struct{ lat, lon float64 }{28.7042, 77.1026}
	d := Distance(point.lat, point.lon, center.lat, center.lon)

	assert.True(t, WithinRadius(point.lat, point.lon, center.lat, center.lon, d),
		"a point exactly at the radius is inside")
	assert.False(t, WithinRadius(point.lat, point.lon, center.lat, center.lon, d-0.001))
}

func TestWithinRadiusOutside(t *testing.T) {
	assert.False(t, WithinRadius(28.9000, 77.3000, 28.7041, 77.1025, 30))
}
