// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"
	"time"

	"github.com/relabs-tech/location_publisher/internal/telemetry"
)

// subscriberBuffer is how many status events a slow subscriber may lag
// before events are dropped for it.
const subscriberBuffer = 16

// StatusEvent is the display form of a telemetry.Event.
type StatusEvent struct {
	Time    time.Time `json:"time"`
	State   string    `json:"state"`
	Status  string    `json:"status"`
	Error   string    `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Hub fans session events out to any number of subscribers. Publish never
// blocks, so it is safe to use as a session listener.
type Hub struct {
	mu   sync.Mutex
	subs map[chan StatusEvent]struct{}
	last StatusEvent
	now  func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan StatusEvent]struct{}),
		last: StatusEvent{State: telemetry.Idle.String()},
		now:  time.Now,
	}
}

func (h *Hub) Publish(ev telemetry.Event) {
	se := StatusEvent{
		Time:   h.now(),
		State:  ev.State.String(),
		Status: ev.Status,
	}
	if ev.Err != nil {
		se.Error = ev.Err.Error()
	}
	if ev.Message != nil {
		se.Message = ev.Message.Text()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = se
	for ch := range h.subs {
		select {
		case ch <- se:
		default:
		}
	}
}

// Subscribe returns a channel of events and a function that releases it.
func (h *Hub) Subscribe() (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Last returns the most recent event.
func (h *Hub) Last() StatusEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
