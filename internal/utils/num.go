package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// SafeDiv returns a/b, or 0 when b is zero or the result is not finite.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// PctDrop is (base-cur)/base*100, 0 when base is 0. Positive means cur fell.
func PctDrop(base, cur float64) float64 {
	return SafeDiv(base-cur, base) * 100
}

func Round2(f float64) float64 { return roundTo(f, 2) }
func Round1(f float64) float64 { return roundTo(f, 1) }
func Round3(f float64) float64 { return roundTo(f, 3) }

// half away from zero, done in decimal so 2.675 rounds to 2.68
func roundTo(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	r, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return r
}

func Clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

func Clamp01(f float64) float64 { return Clamp(f, 0, 1) }

func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
