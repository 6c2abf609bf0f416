package geo

import "math"

const earthRadiusKm = 6371

// Mexico bounding box. Coordinates outside this box are rejected before any
// registry call is issued.
const (
	MinLatitude  = 14
	MaxLatitude  = 33
	MinLongitude = -118
	MaxLongitude = -86
)

// DistanceKm returns the haversine distance in kilometers between two
// coordinates. Every component that needs a distance uses this one function
// so scoring and display never disagree.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// InMexico reports whether the coordinate falls inside the serviced
// bounding box.
func InMexico(lat, lon float64) bool {
	return lat >= MinLatitude && lat <= MaxLatitude &&
		lon >= MinLongitude && lon <= MaxLongitude
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
