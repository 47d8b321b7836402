// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	a := Fix{Latitude: 0, Longitude: 0}
	b := Fix{Latitude: 1, Longitude: 0}
	assert.InDelta(t, 111195.08, Distance(a, b), 0.01)
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
	assert.Equal(t, float64(0), Distance(a, a))

	// antipodal points are half the circumference apart
	c := Fix{Latitude: 0, Longitude: 180}
	assert.InDelta(t, 20015114.35, Distance(a, c), 0.01)
}

func TestOffset(t *testing.T) {
	origin := Fix{Latitude: 48.1173, Longitude: 11.5167, Time: time.Unix(100, 0)}

	north := Offset(origin, 36, 0)
	assert.InDelta(t, 36, Distance(origin, north), 1e-6)
	assert.InDelta(t, origin.Longitude, north.Longitude, 1e-12)
	assert.Greater(t, north.Latitude, origin.Latitude)
	assert.Equal(t, origin.Time, north.Time)

	east := Offset(origin, 1000, 90)
	assert.InDelta(t, 1000, Distance(origin, east), 1e-6)
	assert.Greater(t, east.Longitude, origin.Longitude)

	// crossing the antimeridian wraps longitude into [-180, 180)
	wrapped := Offset(Fix{Latitude: 0, Longitude: 179.9999}, 1000, 90)
	assert.Less(t, wrapped.Longitude, float64(-179))
}

func TestThrottle(t *testing.T) {
	base := Fix{Latitude: 10, Longitude: 20, Time: time.Unix(1000, 0)}
	at := func(d time.Duration, meters float64) Fix {
		f := Offset(base, meters, 0)
		f.Time = base.Time.Add(d)
		return f
	}

	gate := &throttle{interval: DefaultInterval, minDistance: DefaultMinDistance}
	assert.True(t, gate.admit(base), "first fix always passes")
	assert.False(t, gate.admit(at(time.Second, 50)), "interval not elapsed")
	assert.False(t, gate.admit(at(6*time.Second, 1)), "displacement below minimum")
	assert.True(t, gate.admit(at(6*time.Second, 10)))
	assert.False(t, gate.admit(at(7*time.Second, 20)), "interval counts from the last admitted fix")
	assert.True(t, gate.admit(at(11*time.Second, 20)))

	open := &throttle{}
	assert.True(t, open.admit(base))
	assert.True(t, open.admit(base), "no hints lets duplicates through")
}
