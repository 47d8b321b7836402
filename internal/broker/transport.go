// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package broker adapts the paho MQTT client to the publish/subscribe
// transport the telemetry session drives.
package broker

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("not connected to broker")
	ErrTimeout      = errors.New("timed out waiting for broker")
)

// quiesce is how long Disconnect lets in-flight work drain, in milliseconds.
const quiesce = 250

type Options struct {
	Broker         string // e.g. tcp://localhost:1883
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Transport is one MQTT connection at a time. Every Connect uses a fresh
// random client identifier.
type Transport struct {
	opts Options

	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu       sync.Mutex
	client   mqtt.Client
	clientID string
}

func NewTransport(opts Options) *Transport {
	return &Transport{
		opts:      opts,
		newClient: mqtt.NewClient,
	}
}

// ClientID is the identifier of the current connection, empty when
// disconnected.
func (t *Transport) ClientID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clientID
}

func (t *Transport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return nil
	}

	clientID := uuid.NewString()
	opts := mqtt.NewClientOptions().
		AddBroker(t.opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(t.opts.ConnectTimeout)

	client := t.newClient(opts)
	if err := wait(client.Connect(), t.opts.ConnectTimeout); err != nil {
		return errors.Wrapf(err, "connect to %s", t.opts.Broker)
	}
	log.WithFields(log.Fields{
		"broker":    t.opts.Broker,
		"client_id": clientID,
	}).Info("broker: connected")

	t.client = client
	t.clientID = clientID
	return nil
}

func (t *Transport) Publish(channel string, payload []byte) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := client.Publish(channel, t.opts.QoS, t.opts.Retained, payload)
	if err := wait(token, t.opts.PublishTimeout); err != nil {
		return errors.Wrapf(err, "publish to %s", channel)
	}
	return nil
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return ErrNotConnected
	}
	client := t.client
	t.client = nil
	t.clientID = ""

	if !client.IsConnectionOpen() {
		return errors.Wrap(ErrNotConnected, "connection already lost")
	}
	client.Disconnect(quiesce)
	log.WithField("broker", t.opts.Broker).Info("broker: disconnected")
	return nil
}

// wait blocks on token for at most timeout; zero means no limit.
func wait(token mqtt.Token, timeout time.Duration) error {
	if timeout > 0 {
		if !token.WaitTimeout(timeout) {
			return ErrTimeout
		}
	} else {
		token.Wait()
	}
	return token.Error()
}
