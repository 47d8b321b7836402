// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry runs the connect / publish / disconnect lifecycle that
// turns position fixes into location messages on a broker.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/location_publisher/internal/gps"
	"github.com/relabs-tech/location_publisher/internal/speed"
)

// Transport is a publish/subscribe connection to a broker. Calls are
// expected to return in bounded time; timeouts belong to the implementation.
type Transport interface {
	Connect() error
	Publish(channel string, payload []byte) error
	Disconnect() error
}

// State is the lifecycle state of a Session.
type State int32

const (
	Idle State = iota
	Connecting
	Active
	Stopping
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Event is a status notification: every transition and every failure
// produces one.
type Event struct {
	State   State
	Status  string
	Err     error
	Message *Message // set for publish outcomes
}

// Listener receives events synchronously while the session lock is held.
// It must not call back into the session.
type Listener func(Event)

// Stats counts publish outcomes over the lifetime of a session.
type Stats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

type Option func(*Session)

// WithChannel overrides the topic messages are published to.
func WithChannel(channel string) Option {
	return func(s *Session) { s.channel = channel }
}

// WithUpdateHints sets the interval and minimum displacement requested from
// the position source.
func WithUpdateHints(interval time.Duration, minDistance float64) Option {
	return func(s *Session) {
		s.interval = interval
		s.minDistance = minDistance
	}
}

func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithDistance replaces the surface distance used for speed estimation.
func WithDistance(fn func(a, b gps.Fix) float64) Option {
	return func(s *Session) { s.estimator.Distance = fn }
}

// Session publishes one message per fix while active. Commands and fixes are
// serialized: a fix is estimated and published before the next one, or the
// next command, is handled.
type Session struct {
	transport Transport
	source    gps.Source
	subject   func() string

	channel     string
	interval    time.Duration
	minDistance float64
	listener    Listener

	mu        sync.Mutex
	state     atomic.Int32
	estimator speed.Estimator
	stream    uint64 // bumped on every Start and Stop; guarded by mu

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewSession wires a session to its collaborators. subject is read on every
// publish so late edits of the subject id take effect immediately.
func NewSession(transport Transport, source gps.Source, subject func() string, opts ...Option) *Session {
	s := &Session{
		transport:   transport,
		source:      source,
		subject:     subject,
		channel:     Channel,
		interval:    gps.DefaultInterval,
		minDistance: gps.DefaultMinDistance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State never blocks, even while a command is in progress.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Failed:    s.failed.Load(),
	}
}

// Start connects the transport and then starts position updates. The
// returned status is meant for display.
func (s *Session) Start() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case Connecting, Active, Stopping:
		return s.report(Event{Status: StatusAlreadyPublishing, Err: ErrInvalidCommand})
	}

	// no speed spanning a gap in tracking
	s.estimator.Reset()
	s.stream++
	s.setState(Connecting)

	if err := s.transport.Connect(); err != nil {
		s.setState(Idle)
		return s.report(Event{Status: StatusConnectFailed, Err: newError(ErrConnect, err)})
	}

	s.setState(Active)
	status := s.report(Event{Status: StatusConnected})

	stream := s.stream
	onFix := func(fix gps.Fix) { s.handleFix(stream, fix) }
	if err := s.source.StartUpdates(s.interval, s.minDistance, onFix); err != nil {
		// never leave a connected transport without a position stream
		if derr := s.transport.Disconnect(); derr != nil {
			log.WithError(derr).Warn("telemetry: disconnect after failed start")
		}
		s.setState(Idle)
		return s.report(Event{Status: StatusUpdatesFailed, Err: newError(ErrSourceStart, err)})
	}
	s.report(Event{Status: StatusUpdatesStarted})

	return status
}

// Stop halts position updates before disconnecting, so nothing is published
// after the disconnect begins. A failed disconnect still ends the session.
func (s *Session) Stop() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Active {
		return s.report(Event{Status: StatusNotPublishing, Err: ErrInvalidCommand})
	}

	s.setState(Stopping)
	s.stream++
	if err := s.source.StopUpdates(); err != nil {
		log.WithError(err).Warn("telemetry: stop location updates")
	}
	s.report(Event{Status: StatusUpdatesStopped})
	s.estimator.Reset()

	err := s.transport.Disconnect()
	s.setState(Disconnected)
	if err != nil {
		return s.report(Event{Status: StatusDisconnectFailed, Err: newError(ErrDisconnect, err)})
	}
	return s.report(Event{Status: StatusDisconnected})
}

// HandleFix feeds fix into the current position stream as if the source had
// delivered it.
func (s *Session) HandleFix(fix gps.Fix) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	s.handleFix(stream, fix)
}

// handleFix estimates speed for fix and publishes one message. Fixes that
// arrive while the session is not active, or from a stream that has since
// been stopped, are dropped. A failed publish is reported and not retried.
func (s *Session) handleFix(stream uint64, fix gps.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Active {
		log.WithField("state", s.State()).Debug("telemetry: fix dropped, session not active")
		return
	}
	if stream != s.stream {
		log.WithField("stream", stream).Debug("telemetry: fix dropped, stream stopped")
		return
	}

	msg := Message{
		SubjectID: s.currentSubject(),
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Speed:     s.estimator.Estimate(fix),
	}

	if err := s.transport.Publish(s.channel, []byte(msg.Text())); err != nil {
		s.failed.Add(1)
		s.report(Event{Status: StatusPublishFailed, Err: newError(ErrPublish, err), Message: &msg})
		return
	}
	s.published.Add(1)
	s.report(Event{Status: StatusSending, Message: &msg})
}

func (s *Session) currentSubject() string {
	if s.subject == nil {
		return ""
	}
	return s.subject()
}

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		log.WithFields(log.Fields{"from": prev, "to": st}).Debug("telemetry: state change")
	}
}

func (s *Session) report(ev Event) string {
	ev.State = s.State()

	entry := log.WithField("state", ev.State)
	if ev.Message != nil {
		entry = entry.WithField("message", ev.Message.Text())
	}
	switch {
	case ev.Err == nil:
		entry.Info("telemetry: " + ev.Status)
	case ev.Err == ErrInvalidCommand:
		entry.Debug("telemetry: " + ev.Status)
	default:
		entry.WithError(ev.Err).Warn("telemetry: " + ev.Status)
	}

	if s.listener != nil {
		s.listener(ev)
	}
	return ev.Status
}
