// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SimulatedSource walks a straight line from Origin at a constant speed and
// heading, emitting one fix per tick. Every StartUpdates restarts the walk.
type SimulatedSource struct {
	Origin     Fix
	SpeedKmh   float64
	HeadingDeg float64

	// Tick overrides the emission cadence; zero means the interval hint.
	Tick time.Duration

	now func() time.Time

	mu   sync.Mutex
	stop chan struct{}
}

func NewSimulatedSource(origin Fix, speedKmh, headingDeg float64) *SimulatedSource {
	return &SimulatedSource{
		Origin:     origin,
		SpeedKmh:   speedKmh,
		HeadingDeg: headingDeg,
		now:        time.Now,
	}
}

func (s *SimulatedSource) StartUpdates(interval time.Duration, minDistance float64, onFix func(Fix)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return ErrAlreadyStarted
	}

	tick := s.Tick
	if tick <= 0 {
		tick = interval
	}
	if tick <= 0 {
		tick = time.Second
	}

	s.stop = make(chan struct{})
	gate := &throttle{interval: interval, minDistance: minDistance}
	go s.run(tick, gate, onFix, s.stop)

	log.WithFields(log.Fields{
		"speed_kmh":   s.SpeedKmh,
		"heading_deg": s.HeadingDeg,
		"tick":        tick,
	}).Info("gps: simulated source started")
	return nil
}

func (s *SimulatedSource) StopUpdates() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
		log.Info("gps: simulated source stopped")
	}
	return nil
}

func (s *SimulatedSource) run(tick time.Duration, gate *throttle, onFix func(Fix), stop <-chan struct{}) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// Fixes are stamped on the tick grid so that consecutive samples are
	// exactly one tick apart and pass an interval hint equal to the tick.
	start := s.now()
	emit := func(n int64) {
		t := start.Add(time.Duration(n) * tick)
		fix := Offset(s.Origin, s.SpeedKmh/3.6*t.Sub(start).Seconds(), s.HeadingDeg)
		fix.Time = t
		if gate.admit(fix) {
			onFix(fix)
		}
	}

	emit(0)
	last := int64(0)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		select {
		case <-stop:
			return
		default:
		}
		n := int64((s.now().Sub(start) + tick/2) / tick)
		if n <= last {
			n = last + 1
		}
		last = n
		emit(n)
	}
}
