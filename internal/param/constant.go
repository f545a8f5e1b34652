package param

import (
	"hydroengine/internal/calendar"
	"hydroengine/internal/scenario"
)

// Constant returns a literal value, optionally driven by an
// Activation function when an outer optimiser has wired in a raw
// variable value.
type Constant struct {
	name       string
	value      float64
	activation *Activation
}

// NewConstant builds a plain literal constant.
func NewConstant(name string, value float64) *Constant {
	return &Constant{name: name, value: value}
}

// NewActivatedConstant builds a constant whose value is produced by
// running a raw variable through act; the raw variable defaults to 0
// until SetVariables installs one.
func NewActivatedConstant(name string, act Activation) *Constant {
	c := &Constant{name: name, activation: &act}
	c.value = act.Apply(0)
	return c
}

func (c *Constant) Name() string         { return c.name }
func (c *Constant) ValueKind() ValueKind { return ValueF64 }
func (c *Constant) Dependencies() []int  { return nil }
func (c *Constant) IsSimple() bool       { return true }

func (c *Constant) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) { return nil, nil }
func (c *Constant) Before(_ Context, _ Internal) (bool, float64, error)         { return false, 0, nil }
func (c *Constant) Compute(_ Context, _ Internal) (Output, error)               { return F64Output(c.value), nil }
func (c *Constant) After(_ Context, _ Internal) error                           { return nil }

// Size implements Variable: one f64 slot if activated, else none.
func (c *Constant) Size(_ any) (int, int) {
	if c.activation == nil {
		return 0, 0
	}
	return 1, 0
}

func (c *Constant) SetVariables(f64s []float64, _ []uint64, _ any, _ Internal) error {
	if c.activation == nil || len(f64s) == 0 {
		return nil
	}
	c.value = c.activation.Apply(f64s[0])
	return nil
}

func (c *Constant) GetVariables(_ Internal) ([]float64, []uint64) {
	if c.activation == nil {
		return nil, nil
	}
	return []float64{c.value}, nil
}

func (c *Constant) LowerBounds() []float64 {
	if c.activation == nil {
		return nil
	}
	return []float64{c.activation.LowerBound()}
}

func (c *Constant) UpperBounds() []float64 {
	if c.activation == nil {
		return nil
	}
	return []float64{c.activation.UpperBound()}
}
