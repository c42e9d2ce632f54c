// Package formula implements the sequence formula engine: it maps a curve
// configuration and an integer index to a value, and inverts a target value
// back to the closest index. It is pure math and holds no state.
//
// Value never returns an error. Malformed configurations (unknown curve type,
// non-positive exponential base) are logged and degrade to 0 so that value
// calculation can never take a slice update down.
package formula

import (
	"math"

	"lifeslice/internal/logger"
)

// Type identifies one of the supported growth/decay curves.
type Type string

const (
	TypeLinear      Type = "linear"
	TypeExponential Type = "exponential"
	TypeSqrt        Type = "sqrt"
	TypeLogarithmic Type = "logarithmic"
	TypeSigmoid     Type = "sigmoid"
)

// MaxIndex is the ceiling enforced on all index mutations.
const MaxIndex = 10000

// Params holds the optional named parameters of a curve. Each curve type reads
// only the fields relevant to it; nil fields fall back to that curve's default.
// Stored as JSON on the slice row.
type Params struct {
	Multiplier *float64 `json:"multiplier,omitempty"`
	Offset     *float64 `json:"offset,omitempty"`
	Base       *float64 `json:"base,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	K          *float64 `json:"k,omitempty"`
	Inflection *float64 `json:"inflection,omitempty"`
}

func (p Params) multiplier(def float64) float64 {
	if p.Multiplier != nil {
		return *p.Multiplier
	}
	return def
}

func (p Params) offset() float64 {
	if p.Offset != nil {
		return *p.Offset
	}
	return 0
}

func (p Params) base() float64 {
	if p.Base != nil {
		return *p.Base
	}
	return 2
}

func (p Params) max() float64 {
	if p.Max != nil {
		return *p.Max
	}
	return 100
}

func (p Params) k() float64 {
	if p.K != nil {
		return *p.K
	}
	return 0.2
}

func (p Params) inflection() float64 {
	if p.Inflection != nil {
		return *p.Inflection
	}
	return 15
}

// Config pairs a curve type with its parameters.
type Config struct {
	Type   Type   `json:"type"`
	Params Params `json:"params"`
}

// Value computes the curve value at the given index, floored to an integer.
// Negative indexes clamp to 0. Computation faults degrade to 0; values beyond
// the int range saturate at math.MaxInt so the curve stays non-decreasing.
func Value(cfg Config, index int) int {
	if index < 0 {
		logger.Get().Warnw("negative index clamped to 0", "type", cfg.Type, "index", index)
		index = 0
	}

	n := float64(index)
	var v float64

	switch cfg.Type {
	case TypeLinear:
		v = cfg.Params.multiplier(1)*n + cfg.Params.offset()
	case TypeExponential:
		base := cfg.Params.base()
		if base <= 0 {
			logger.Get().Errorw("exponential base must be positive", "base", base)
			return 0
		}
		v = math.Pow(base, n)
	case TypeSqrt:
		v = cfg.Params.multiplier(1)*math.Sqrt(n) + cfg.Params.offset()
	case TypeLogarithmic:
		v = cfg.Params.multiplier(10)*math.Log(n+1) + cfg.Params.offset()
	case TypeSigmoid:
		v = cfg.Params.max() / (1 + math.Exp(-cfg.Params.k()*(n-cfg.Params.inflection())))
	default:
		logger.Get().Errorw("unknown formula type", "type", cfg.Type)
		return 0
	}

	if math.IsNaN(v) || math.IsInf(v, -1) {
		logger.Get().Errorw("formula produced a non-finite value", "type", cfg.Type, "index", index)
		return 0
	}
	// Exponential curves leave the int range long before the float does.
	// Saturate instead of converting out of range, which would wrap
	// negative and break the curve's monotonicity.
	if v >= float64(math.MaxInt) {
		return math.MaxInt
	}
	if v <= float64(math.MinInt) {
		return math.MinInt
	}
	return int(math.Floor(v))
}

// monotonic reports whether the curve is monotonically non-decreasing in the
// index, which allows ClosestIndex to binary-search instead of scanning.
func monotonic(cfg Config) bool {
	switch cfg.Type {
	case TypeLinear, TypeSqrt, TypeLogarithmic:
		return cfg.Params.multiplier(1) >= 0
	case TypeExponential:
		return cfg.Params.base() >= 1
	case TypeSigmoid:
		return true
	}
	return false
}

// ClosestIndex finds the index in [0, maxIndex] whose value is closest to
// target. Non-positive targets resolve to index 0. Ties are broken by whichever
// candidate was found first with the strictly smallest absolute difference.
func ClosestIndex(cfg Config, target, maxIndex int) int {
	if target <= 0 {
		return 0
	}
	if maxIndex < 0 {
		maxIndex = 0
	}

	if !monotonic(cfg) {
		return scanClosest(cfg, target, maxIndex)
	}

	bestIndex := 0
	bestDiff := math.MaxInt

	lo, hi := 0, maxIndex
	for lo <= hi {
		mid := lo + (hi-lo)/2
		v := Value(cfg, mid)
		if v == target {
			return mid
		}

		diff := v - target
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			bestIndex = mid
		}

		if v < target {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return bestIndex
}

func scanClosest(cfg Config, target, maxIndex int) int {
	bestIndex := 0
	bestDiff := math.MaxInt

	for i := 0; i <= maxIndex; i++ {
		v := Value(cfg, i)
		if v == target {
			return i
		}
		diff := v - target
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			bestIndex = i
		}
	}
	return bestIndex
}
