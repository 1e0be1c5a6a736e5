// Package forecast projects headline P&L metrics forward with an
// ordinary least-squares trend. No seasonality or confidence intervals,
// just the line through the monthly history.
package forecast

import (
	"math"

	"lucro/internal/core"
	"lucro/internal/pnl"
)

// MinPoints is the shortest history a trend fit accepts. Below it the
// result carries a warning instead of a degenerate line.
const MinPoints = 3

// DefaultHorizon is the number of projected months when the caller does
// not ask for a specific horizon.
const DefaultHorizon = 3

// Point is one projected month.
type Point struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	EBITDA  float64 `json:"ebitda"`
}

// Result is a projection. Points is empty when the history is too short,
// with Warning saying why.
type Result struct {
	Points  []Point `json:"forecast"`
	Warning string  `json:"warning,omitempty"`
}

// Project fits a least-squares line to the statement's total revenue and
// EBITDA series and extrapolates horizon months past the last header.
// Projected revenue is floored at zero; EBITDA may go negative.
func Project(st *pnl.Statement, horizon int) Result {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if st == nil || st.Empty() {
		return Result{Points: []Point{}}
	}
	if len(st.Headers) < MinPoints {
		return Result{
			Points:  []Point{},
			Warning: "not enough history for a trend, need 3 or more months",
		}
	}

	revenue := fit(st.Series(core.LineTotalRevenue))
	ebitda := fit(st.Series(core.LineEBITDA))

	last, err := core.ParseMonth(st.Headers[len(st.Headers)-1])
	if err != nil {
		return Result{Points: []Point{}, Warning: "unparseable month header"}
	}

	points := make([]Point, 0, horizon)
	lastIdx := len(st.Headers) - 1
	month := last
	for i := 1; i <= horizon; i++ {
		month = month.Next()
		x := float64(lastIdx + i)
		points = append(points, Point{
			Month:   month.String(),
			Revenue: math.Max(0, round2(revenue.at(x))),
			EBITDA:  round2(ebitda.at(x)),
		})
	}
	return Result{Points: points}
}

// line is a fitted y = intercept + slope*x model.
type line struct {
	slope     float64
	intercept float64
}

func (l line) at(x float64) float64 {
	return l.intercept + l.slope*x
}

// fit computes the ordinary least-squares line through (i, ys[i]).
// A series of constant x-variance zero cannot occur here since indexes
// are distinct; a single point would, but callers guard on MinPoints.
func fit(ys []float64) line {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return line{intercept: sumY / n}
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return line{
		slope:     slope,
		intercept: (sumY - slope*sumX) / n,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
