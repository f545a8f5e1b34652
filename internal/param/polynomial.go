package param

import (
	"math"

	"hydroengine/internal/calendar"
	"hydroengine/internal/metric"
	"hydroengine/internal/scenario"
)

// PolynomialOfStorage evaluates sum(coefficients[k] * (s*scale+offset)^k)
// where s is a storage node's volume or proportional volume metric.
type PolynomialOfStorage struct {
	name         string
	storage      metric.Metric
	coefficients []float64
	scale        float64
	offset       float64
}

// NewPolynomialOfStorage builds a PolynomialOfStorage parameter.
func NewPolynomialOfStorage(name string, storage metric.Metric, coefficients []float64, scale, offset float64) *PolynomialOfStorage {
	return &PolynomialOfStorage{name: name, storage: storage, coefficients: coefficients, scale: scale, offset: offset}
}

func (p *PolynomialOfStorage) Name() string         { return p.name }
func (p *PolynomialOfStorage) ValueKind() ValueKind { return ValueF64 }

func (p *PolynomialOfStorage) Dependencies() []int {
	if p.storage.Kind == metric.KindParameterValue {
		return []int{p.storage.Index}
	}
	return nil
}

func (p *PolynomialOfStorage) Setup(_ []calendar.Step, _ scenario.Index) (Internal, error) {
	return nil, nil
}
func (p *PolynomialOfStorage) Before(_ Context, _ Internal) (bool, float64, error) {
	return false, 0, nil
}

func (p *PolynomialOfStorage) Compute(ctx Context, _ Internal) (Output, error) {
	s, err := ctx.Resolver.ResolveF64(p.storage, ctx.State)
	if err != nil {
		return Output{}, err
	}

	x := s*p.scale + p.offset
	var result float64
	for k, c := range p.coefficients {
		result += c * math.Pow(x, float64(k))
	}
	return F64Output(result), nil
}

func (p *PolynomialOfStorage) After(_ Context, _ Internal) error { return nil }
