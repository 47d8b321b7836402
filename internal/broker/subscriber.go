// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package broker

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Handler receives one message payload from a subscribed channel.
type Handler func(channel string, payload []byte)

// Subscriber listens on broker channels, reconnecting as paho sees fit.
type Subscriber struct {
	opts Options

	newClient func(*mqtt.ClientOptions) mqtt.Client
	client    mqtt.Client
}

func NewSubscriber(opts Options) *Subscriber {
	return &Subscriber{
		opts:      opts,
		newClient: mqtt.NewClient,
	}
}

// Subscribe connects on first use and registers handler for channel.
func (s *Subscriber) Subscribe(channel string, handler Handler) error {
	if s.client == nil {
		opts := mqtt.NewClientOptions().
			AddBroker(s.opts.Broker).
			SetClientID("location-monitor-" + uuid.NewString()).
			SetConnectTimeout(s.opts.ConnectTimeout)

		client := s.newClient(opts)
		if err := wait(client.Connect(), s.opts.ConnectTimeout); err != nil {
			return errors.Wrapf(err, "connect to %s", s.opts.Broker)
		}
		log.WithField("broker", s.opts.Broker).Info("monitor: connected")
		s.client = client
	}

	token := s.client.Subscribe(channel, s.opts.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if err := wait(token, s.opts.ConnectTimeout); err != nil {
		return errors.Wrapf(err, "subscribe to %s", channel)
	}
	log.WithField("channel", channel).Info("monitor: subscribed")
	return nil
}

func (s *Subscriber) Close() {
	if s.client == nil {
		return
	}
	s.client.Disconnect(quiesce)
	s.client = nil
}
