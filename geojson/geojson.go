// Package geojson holds the spherical geometry used to filter events by
// distance from a point.
package geojson

import (
	"math"
)

// EarthRadiusM is the approximate radius of the earth in meters
const EarthRadiusM float64 = 6378137.0

// Haversine computes the distance in meters across the world's surface between two lat/lng coordinates.
func Haversine(lonFrom float64, latFrom float64, lonTo float64, latTo float64) (distanceM float64) {
	var deltaLat = (latTo - latFrom) * (math.Pi / 180)
	var deltaLon = (lonTo - lonFrom) * (math.Pi / 180)

	var a = math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(latFrom*(math.Pi/180))*math.Cos(latTo*(math.Pi/180))*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	var c = 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	distanceM = EarthRadiusM * c

	return
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// Contains reports whether (lat, lng) lies inside the box.
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// BoundingBox returns a box that contains every point within radiusM meters
// of (cLat, cLng). It is only a prefilter: corners of the box are farther
// than radiusM, so matches still have to be checked with Haversine.
//
// Near the poles, or when the circle crosses the antimeridian, the box spans
// all longitudes.
func BoundingBox(cLat, cLng, radiusM float64) Box {
	dLat := radiusM / EarthRadiusM * (180 / math.Pi)

	b := Box{
		MinLat: math.Max(cLat-dLat, -90),
		MaxLat: math.Min(cLat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}

	cos := math.Cos(cLat * (math.Pi / 180))
	if b.MinLat == -90 || b.MaxLat == 90 || cos <= 0 {
		return b
	}

	dLng := dLat / cos
	if cLng-dLng < -180 || cLng+dLng > 180 {
		return b
	}
	b.MinLng, b.MaxLng = cLng-dLng, cLng+dLng

	return b
}
