package score

import "math"

// Ramp maps a measurement to 0-100 by linear interpolation between
// breakpoints: 0 at or below PoorLow, 50 at AcceptableLow, 100 across
// [IdealLow, IdealHigh], 50 at AcceptableHigh and 0 at or above PoorHigh.
// An unbounded upper side uses +Inf for the three high breakpoints.
type Ramp struct {
	PoorLow        float64
	AcceptableLow  float64
	IdealLow       float64
	IdealHigh      float64
	AcceptableHigh float64
	PoorHigh       float64
}

const (
	acceptablePoints = 50.0
	idealPoints      = 100.0
)

// Score returns the ramp value of x.
func (r Ramp) Score(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x <= r.PoorLow:
		return 0
	case x < r.AcceptableLow:
		return lerp(x, r.PoorLow, r.AcceptableLow, 0, acceptablePoints)
	case x < r.IdealLow:
		return lerp(x, r.AcceptableLow, r.IdealLow, acceptablePoints, idealPoints)
	case x <= r.IdealHigh:
		return idealPoints
	case x < r.AcceptableHigh:
		return lerp(x, r.IdealHigh, r.AcceptableHigh, idealPoints, acceptablePoints)
	case x < r.PoorHigh:
		return lerp(x, r.AcceptableHigh, r.PoorHigh, acceptablePoints, 0)
	default:
		return 0
	}
}

// Ideal reports whether x lies in the ideal band.
func (r Ramp) Ideal(x float64) bool {
	return x >= r.IdealLow && x <= r.IdealHigh
}

func lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y1
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// upTo builds a ramp with no upper penalty.
func upTo(poor, acceptable, ideal float64) Ramp {
	inf := math.Inf(1)
	return Ramp{
		PoorLow:        poor,
		AcceptableLow:  acceptable,
		IdealLow:       ideal,
		IdealHigh:      inf,
		AcceptableHigh: inf,
		PoorHigh:       inf,
	}
}
