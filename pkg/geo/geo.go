package geo

import "math"

// earthRadiusM is the mean Earth radius used for great-circle distances.
const earthRadiusM = 6371000.0

// Distance returns the haversine great-circle distance in meters between two
// WGS84 coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// WithinRadius reports whether the point (lat, lon) lies within radiusM
// meters of the center. The boundary is inclusive: a point exactly at the
// radius is inside.
func WithinRadius(lat, lon, centerLat, centerLon, radiusM float64) bool {
	return Distance(lat, lon, centerLat, centerLon) <= radiusM
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
