// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"github.com/pkg/errors"
)

// Failure kinds reported on Event.Err. Match them with errors.Is.
var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrConnect          = errors.New("connect failed")
	ErrSourceStart      = errors.New("location updates failed to start")
	ErrPublish          = errors.New("publish failed")
	ErrDisconnect       = errors.New("disconnect failed")
	ErrInvalidCommand   = errors.New("command not valid in current state")
)

// Status texts shown to the user.
const (
	StatusPermissionRequired = "Location permissions are required"
	StatusConnected          = "Connected to broker"
	StatusConnectFailed      = "Error connecting to broker"
	StatusUpdatesStarted     = "Location updates started"
	StatusUpdatesFailed      = "Error starting location updates"
	StatusSending            = "Sending data to broker"
	StatusPublishFailed      = "Error sending location and speed to broker"
	StatusUpdatesStopped     = "Location updates stopped"
	StatusDisconnected       = "Disconnected from broker"
	StatusDisconnectFailed   = "Error disconnecting from broker"
	StatusAlreadyPublishing  = "Already publishing"
	StatusNotPublishing      = "Not publishing"
)

// Error attaches a failure kind to the collaborator error that caused it.
type Error struct {
	Kind error
	Err  error
}

func newError(kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Is(target error) bool { return target == e.Kind }
func (e *Error) Unwrap() error        { return e.Err }
func (e *Error) Cause() error         { return e.Err }
