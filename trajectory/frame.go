package trajectory

import (
	"math"

	"github.com/paulmach/orb"
)

// localFrame is a frame translated to origin and rotated so +x points along yaw.
type localFrame struct {
	origin   orb.Point
	cos, sin float64
}

func newLocalFrame(origin orb.Point, yaw float64) localFrame {
	return localFrame{origin: origin, cos: math.Cos(yaw), sin: math.Sin(yaw)}
}

// toLocal rotates by -yaw after translating.
func (f localFrame) toLocal(p orb.Point) (x, y float64) {
	dx, dy := p[0]-f.origin[0], p[1]-f.origin[1]
	return dx*f.cos + dy*f.sin, -dx*f.sin + dy*f.cos
}

// toGlobal is the inverse of toLocal.
func (f localFrame) toGlobal(x, y float64) orb.Point {
	return orb.Point{
		x*f.cos - y*f.sin + f.origin[0],
		x*f.sin + y*f.cos + f.origin[1],
	}
}
