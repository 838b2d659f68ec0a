package frenet

import (
	"fmt"
	"math"
)

// Ring builds a closed circular track of the given radius sampled counter-clockwise
// at n points. Positive d points away from the ring's center.
func Ring(radius float64, n int) (*Map, error) {
	if n < 3 || radius <= 0 {
		return nil, fmt.Errorf("ring: invalid radius %.2f or sample count %d", radius, n)
	}
	chord := 2 * radius * math.Sin(math.Pi/float64(n))
	points := make([]Waypoint, n)
	for i := range points {
		theta := 2 * math.Pi * float64(i) / float64(n)
		points[i] = Waypoint{
			S:  float64(i) * chord,
			X:  radius * math.Cos(theta),
			Y:  radius * math.Sin(theta),
			DX: math.Cos(theta),
			DY: math.Sin(theta),
		}
	}
	return NewMap(points, float64(n)*chord)
}

// Straight builds a straight road along +x sampled every spacing metres up to length.
// Positive d points toward -y.
func Straight(length, spacing float64) (*Map, error) {
	if spacing <= 0 || length < spacing {
		return nil, fmt.Errorf("straight: invalid length %.2f or spacing %.2f", length, spacing)
	}
	n := int(length/spacing) + 1
	points := make([]Waypoint, n)
	for i := range points {
		s := float64(i) * spacing
		points[i] = Waypoint{S: s, X: s, Y: 0, DX: 0, DY: -1}
	}
	return NewMap(points, 0)
}
