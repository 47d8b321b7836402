// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package speed derives instantaneous ground speed from consecutive fixes.
package speed

import (
	"math"

	"github.com/relabs-tech/location_publisher/internal/gps"
)

// metersPerSecondToKmh converts m/s to km/h.
const metersPerSecondToKmh = 3.6

// Estimator turns a stream of fixes into a stream of speeds in km/h.
// It retains only the most recent fix and is not safe for concurrent use.
type Estimator struct {
	// Distance measures the surface distance between two fixes in meters.
	// Nil means gps.Distance.
	Distance func(a, b gps.Fix) float64

	last *gps.Fix
}

// Estimate returns the speed between the retained fix and fix, then retains
// fix. The first fix, and any fix not strictly later than the retained one,
// yields 0.
func (e *Estimator) Estimate(fix gps.Fix) float32 {
	prev := e.last
	e.last = &fix

	if prev == nil {
		return 0
	}

	distance := e.distance(*prev, fix)
	elapsed := fix.Time.Sub(prev.Time).Seconds()
	if !(elapsed > 0) || !(distance >= 0) || math.IsInf(distance, 0) {
		return 0
	}

	kmh := float32(distance / elapsed * metersPerSecondToKmh)
	if math.IsInf(float64(kmh), 0) {
		return 0
	}
	return kmh
}

// Reset forgets the retained fix so the next estimate starts a new baseline.
func (e *Estimator) Reset() {
	e.last = nil
}

func (e *Estimator) distance(a, b gps.Fix) float64 {
	if e.Distance != nil {
		return e.Distance(a, b)
	}
	return gps.Distance(a, b)
}
