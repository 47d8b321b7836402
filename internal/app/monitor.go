// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/location_publisher/internal/broker"
	"github.com/relabs-tech/location_publisher/internal/config"
	"github.com/relabs-tech/location_publisher/internal/telemetry"
)

// RunMonitor subscribes to the location channel and prints every message
// until ctx is done.
func RunMonitor(ctx context.Context, cfg *config.Config, out io.Writer) error {
	sub := broker.NewSubscriber(broker.Options{
		Broker:         cfg.MQTT.Broker,
		QoS:            byte(cfg.MQTT.QoS),
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
	})
	defer sub.Close()

	if err := sub.Subscribe(cfg.MQTT.Channel, printLocation(out)); err != nil {
		return errors.Wrap(err, "monitor")
	}

	<-ctx.Done()
	log.Info("monitor: shutting down")
	return nil
}

func printLocation(out io.Writer) broker.Handler {
	return func(channel string, payload []byte) {
		line, err := formatLocation(time.Now(), payload)
		if err != nil {
			log.WithError(err).WithField("channel", channel).Warn("monitor: unreadable message")
			return
		}
		fmt.Fprintln(out, line)
	}
}

func formatLocation(at time.Time, payload []byte) (string, error) {
	m, err := telemetry.ParseMessage(string(payload))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"[LOC ] %s subject=%s lat=%.6f lon=%.6f speed=%.2fkm/h",
		at.Format(time.RFC3339), m.SubjectID, m.Latitude, m.Longitude, m.Speed,
	), nil
}
