package agrion

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/model"
)

// VolatilitySource estimates weather volatility for a farm as a fraction in [0, 1].
type VolatilitySource interface {
	Volatility(ctx context.Context, farm model.Farm) (float64, error)
}

// PriceSource quotes the current market price per kg for a crop.
type PriceSource interface {
	PricePerKg(ctx context.Context, cropType string) (float64, error)
}

type VolatilityFunc func(ctx context.Context, farm model.Farm) (float64, error)

func (f VolatilityFunc) Volatility(ctx context.Context, farm model.Farm) (float64, error) {
	return f(ctx, farm)
}

type PriceFunc func(ctx context.Context, cropType string) (float64, error)

func (f PriceFunc) PricePerKg(ctx context.Context, cropType string) (float64, error) {
	return f(ctx, cropType)
}

// RandomOracle draws volatility uniformly from the configured range and prices uniformly
// around the base price. A non-zero seed makes the sequence of draws reproducible.
type RandomOracle struct {
	mu     sync.Mutex
	rng    *rand.Rand
	volMin float64
	volMax float64
	base   float64
	spread float64
}

func NewRandomOracle(policy config.MarketPolicy) *RandomOracle {
	seed := policy.OracleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomOracle{
		rng:    rand.New(rand.NewSource(seed)),
		volMin: policy.VolatilityMin,
		volMax: policy.VolatilityMax,
		base:   policy.BasePricePerKg,
		spread: policy.PriceSpread,
	}
}

func (o *RandomOracle) uniform(lo, hi float64) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return lo + o.rng.Float64()*(hi-lo)
}

func (o *RandomOracle) Volatility(_ context.Context, _ model.Farm) (float64, error) {
	return o.uniform(o.volMin, o.volMax), nil
}

func (o *RandomOracle) PricePerKg(_ context.Context, _ string) (float64, error) {
	return o.base + o.uniform(-o.spread, o.spread), nil
}
