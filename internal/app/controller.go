// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/relabs-tech/location_publisher/internal/telemetry"
)

// PermissionGate reports whether location access is granted. A non-nil
// error blocks start.
type PermissionGate func() error

// SerialPermission grants access when the GPS device can be opened for
// reading and writing by this process. The check never adopts the device as
// controlling terminal and does not wait for carrier detect.
func SerialPermission(portName string) PermissionGate {
	return func() error {
		f, err := os.OpenFile(portName, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
		if err != nil {
			return errors.Wrap(telemetry.ErrPermissionDenied, err.Error())
		}
		return f.Close()
	}
}

// Controller is the command surface shared by the console and the web UI.
type Controller struct {
	session *telemetry.Session
	gate    PermissionGate
	subject *Subject
	hub     *Hub

	// clientID reports the broker identity of the current connection.
	clientID func() string
}

func NewController(session *telemetry.Session, gate PermissionGate, subject *Subject, hub *Hub) *Controller {
	return &Controller{
		session: session,
		gate:    gate,
		subject: subject,
		hub:     hub,
	}
}

// Start checks location permission, then starts the session.
func (c *Controller) Start() string {
	if c.gate != nil {
		if err := c.gate(); err != nil {
			log.WithError(err).Warn("app: " + telemetry.StatusPermissionRequired)
			c.hub.Publish(telemetry.Event{
				State:  c.session.State(),
				Status: telemetry.StatusPermissionRequired,
				Err:    err,
			})
			return telemetry.StatusPermissionRequired
		}
	}
	return c.session.Start()
}

func (c *Controller) Stop() string {
	return c.session.Stop()
}

// Status is a snapshot for display.
type Status struct {
	State     string          `json:"state"`
	Last      StatusEvent     `json:"last"`
	SubjectID string          `json:"subject_id"`
	ClientID  string          `json:"client_id,omitempty"` // empty while disconnected
	Stats     telemetry.Stats `json:"stats"`
}

func (c *Controller) Status() Status {
	st := Status{
		State:     c.session.State().String(),
		Last:      c.hub.Last(),
		SubjectID: c.subject.Get(),
		Stats:     c.session.Stats(),
	}
	if c.clientID != nil {
		st.ClientID = c.clientID()
	}
	return st
}

func (c *Controller) SetSubject(id string) {
	c.subject.Set(id)
	log.WithField("subject_id", c.subject.Get()).Info("app: subject id updated")
}

func (c *Controller) Active() bool {
	return c.session.State() == telemetry.Active
}
