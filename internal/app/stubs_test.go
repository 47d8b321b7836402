// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"
	"time"

	"github.com/relabs-tech/location_publisher/internal/gps"
	"github.com/relabs-tech/location_publisher/internal/telemetry"
)

type transportStub struct {
	mu         sync.Mutex
	connectErr error
	payloads   []string
}

func (s *transportStub) Connect() error { return s.connectErr }

func (s *transportStub) Publish(channel string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, string(payload))
	return nil
}

func (s *transportStub) Disconnect() error { return nil }

type sourceStub struct {
	mu    sync.Mutex
	onFix func(gps.Fix)
}

func (s *sourceStub) StartUpdates(_ time.Duration, _ float64, onFix func(gps.Fix)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFix = onFix
	return nil
}

func (s *sourceStub) StopUpdates() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFix = nil
	return nil
}

func (s *sourceStub) deliver(f gps.Fix) {
	s.mu.Lock()
	onFix := s.onFix
	s.mu.Unlock()
	if onFix != nil {
		onFix(f)
	}
}

func newTestController(gate PermissionGate) (*Controller, *transportStub, *sourceStub, *Hub) {
	tr := &transportStub{}
	src := &sourceStub{}
	hub := NewHub()
	subject := NewSubject("S1")
	session := telemetry.NewSession(tr, src, subject.Get, telemetry.WithListener(hub.Publish))
	return NewController(session, gate, subject, hub), tr, src, hub
}
