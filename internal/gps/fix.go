// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"time"
)

// earthRadiusMeters is the IUGG mean earth radius.
const earthRadiusMeters = 6371008.8

// Nominal update request: one fix every 5 seconds, at least 2 meters apart.
const (
	DefaultInterval    = 5 * time.Second
	DefaultMinDistance = 2.0
)

// Fix is one reported position sample.
type Fix struct {
	Latitude  float64   // decimal degrees
	Longitude float64   // decimal degrees
	Time      time.Time // instant the receiver took the sample
}

// Source is anything that can be told to start and stop emitting fixes.
// onFix is called once per fix, in delivery order, and never concurrently
// with itself. It is never called from inside StartUpdates.
type Source interface {
	StartUpdates(interval time.Duration, minDistance float64, onFix func(Fix)) error
	StopUpdates() error
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Fix) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair over 1 for antipodal points
	h = math.Min(1, h)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// throttle applies the interval/min-distance hints to a raw fix stream the
// way a platform location provider does: the first fix always passes, later
// ones only once both the interval has elapsed and the displacement reaches
// the minimum.
type throttle struct {
	interval    time.Duration
	minDistance float64

	last *Fix
}

func (t *throttle) admit(f Fix) bool {
	if t.last == nil {
		t.last = &f
		return true
	}
	if f.Time.Sub(t.last.Time) < t.interval {
		return false
	}
	if Distance(*t.last, f) < t.minDistance {
		return false
	}
	t.last = &f
	return true
}

// Offset returns the point reached by travelling distanceMeters from f along
// the initial bearing bearingDeg (clockwise from true north). Time is kept.
func Offset(f Fix, distanceMeters, bearingDeg float64) Fix {
	lat1 := f.Latitude * math.Pi / 180.0
	lon1 := f.Longitude * math.Pi / 180.0
	brg := bearingDeg * math.Pi / 180.0
	d := distanceMeters / earthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(
		math.Sin(brg)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Fix{
		Latitude:  lat2 * 180.0 / math.Pi,
		Longitude: math.Mod(lon2*180.0/math.Pi+540, 360) - 180,
		Time:      f.Time,
	}
}
