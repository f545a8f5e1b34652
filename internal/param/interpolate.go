package param

import "hydroengine/internal/apperror"

// interpolate linearly maps x from the domain [lo, hi] to the range
// [loValue, hiValue]. x == lo maps to loValue, x == hi maps to
// hiValue. Used by the control-curve family to blend between the two
// control curves bracketing the current storage proportion.
func interpolate(x, lo, hi, loValue, hiValue float64) float64 {
	if hi == lo {
		return hiValue
	}
	frac := (x - lo) / (hi - lo)
	return loValue + frac*(hiValue-loValue)
}

// lookupBracket finds the index i such that xs[i] <= x <= xs[i+1] for
// a monotonically increasing xs, or an OutOfRange error if x falls
// outside [xs[0], xs[len(xs)-1]] and errOnOutOfBounds is set; when
// unset, x is clamped to the nearest bracket.
func lookupBracket(xs []float64, x float64, errOnOutOfBounds bool) (int, error) {
	if len(xs) < 2 {
		return 0, apperror.New(apperror.CodeInvalidConstraintValue, "interpolation table needs at least two points")
	}
	if x < xs[0] {
		if errOnOutOfBounds {
			return 0, apperror.New(apperror.CodeInterpolationOutOfBounds, "value below interpolation table domain").
				WithDetails("value", x).WithDetails("min", xs[0])
		}
		return 0, nil
	}
	if x > xs[len(xs)-1] {
		if errOnOutOfBounds {
			return 0, apperror.New(apperror.CodeInterpolationOutOfBounds, "value above interpolation table domain").
				WithDetails("value", x).WithDetails("max", xs[len(xs)-1])
		}
		return len(xs) - 2, nil
	}
	for i := 0; i < len(xs)-1; i++ {
		if x >= xs[i] && x <= xs[i+1] {
			return i, nil
		}
	}
	return len(xs) - 2, nil
}
