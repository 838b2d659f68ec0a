package trajectory

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Curve is a smooth function y(x) fitted through anchor points. Implementations must
// pass through every anchor and be continuous in value and slope.
type Curve interface {
	Fit(xs, ys []float64) error
	Predict(x float64) float64
}

// CurveFactory returns a fresh, unfitted curve.
type CurveFactory func() Curve

// NaturalCubic is the default curve: a natural cubic spline.
func NaturalCubic() Curve { return &interp.NaturalCubic{} }

var _ Curve = (*interp.NaturalCubic)(nil)

// ErrDegenerateAnchors reports anchors that do not advance along the local forward
// axis. The anchor spacing must make this impossible; seeing it is a bug.
var ErrDegenerateAnchors = errors.New("anchors not strictly increasing along local x")

func checkIncreasing(xs []float64) error {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return fmt.Errorf("anchor %d at x=%.4f after x=%.4f: %w", i, xs[i], xs[i-1], ErrDegenerateAnchors)
		}
	}
	return nil
}
