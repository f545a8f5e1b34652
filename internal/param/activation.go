package param

import "math"

// ActivationKind is the closed set of variable-to-value mappings used
// when an outer optimiser's raw variable bytes replace a parameter's
// internal value.
type ActivationKind int

const (
	ActivationUnit ActivationKind = iota
	ActivationRectifier
	ActivationBinaryStep
	ActivationLogistic
)

// Activation maps an outer optimiser's scalar variable into a
// parameter's domain. The variable is always clamped to
// [LowerBound(), UpperBound()] before the shape-specific mapping is
// applied.
type Activation struct {
	Kind ActivationKind

	// Unit
	Min, Max float64

	// Rectifier (reuses Min/Max as the output range)
	NegValue float64

	// BinaryStep
	PosValue float64

	// Logistic
	GrowthRate float64
}

// LowerBound returns the raw variable's legal lower bound for this shape.
func (a Activation) LowerBound() float64 {
	switch a.Kind {
	case ActivationUnit:
		return a.Min
	case ActivationLogistic:
		return -6.0
	default:
		return -1.0
	}
}

// UpperBound returns the raw variable's legal upper bound for this shape.
func (a Activation) UpperBound() float64 {
	switch a.Kind {
	case ActivationUnit:
		return a.Max
	case ActivationLogistic:
		return 6.0
	default:
		return 1.0
	}
}

// Apply clamps value to [LowerBound, UpperBound] and applies the
// shape-specific mapping.
func (a Activation) Apply(value float64) float64 {
	v := math.Max(a.LowerBound(), math.Min(a.UpperBound(), value))
	switch a.Kind {
	case ActivationUnit:
		return v
	case ActivationRectifier:
		if v <= 0.0 {
			return a.NegValue
		}
		return a.Min + v*(a.Max-a.Min)
	case ActivationBinaryStep:
		if v <= 0.0 {
			return a.NegValue
		}
		return a.PosValue
	case ActivationLogistic:
		return a.Max / (1.0 + math.Exp(-a.GrowthRate*v))
	default:
		return v
	}
}
