// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"strings"
	"sync"
)

// Subject holds the tracked entity's id. It can be edited while a session
// runs; the session reads it on every publish.
type Subject struct {
	mu sync.RWMutex
	id string
}

func NewSubject(id string) *Subject {
	return &Subject{id: strings.TrimSpace(id)}
}

func (s *Subject) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Subject) Set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = strings.TrimSpace(id)
}
