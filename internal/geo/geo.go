// Package geo provides the distance and containment primitives used by the
// detection engine. All functions are pure; callers are responsible for
// rejecting NaN or out-of-range coordinates upstream.
package geo

import "math"

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000

// Point represents a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle (haversine) distance between two points
// in meters.
func Distance(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaPhi := (b.Lat - a.Lat) * math.Pi / 180
	deltaLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// CircleContains reports whether p lies within radiusM meters of center.
// The boundary is inclusive.
func CircleContains(center Point, radiusM float64, p Point) bool {
	return Distance(center, p) <= radiusM
}

// PolygonContains reports whether p lies inside the polygon described by
// ring using a ray-casting test. The ring is expected to be closed (first
// point equal to last); an unclosed ring is closed by appending the first
// point before testing.
func PolygonContains(ring []Point, p Point) bool {
	if len(ring) < 3 {
		return false
	}
	if ring[0] != ring[len(ring)-1] {
		closed := make([]Point, 0, len(ring)+1)
		closed = append(closed, ring...)
		closed = append(closed, ring[0])
		ring = closed
	}

	inside := false
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		if (a.Lat > p.Lat) == (b.Lat > p.Lat) {
			continue
		}
		// Longitude where the edge crosses the point's latitude.
		crossLon := a.Lon + (p.Lat-a.Lat)/(b.Lat-a.Lat)*(b.Lon-a.Lon)
		if p.Lon < crossLon {
			inside = !inside
		}
	}
	return inside
}
