// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/location_publisher/internal/broker"
	"github.com/relabs-tech/location_publisher/internal/config"
	"github.com/relabs-tech/location_publisher/internal/gps"
	"github.com/relabs-tech/location_publisher/internal/telemetry"
)

// NewPublisher builds the transport, position source and session described
// by cfg and returns the controller driving them.
func NewPublisher(cfg *config.Config) (*Controller, error) {
	source, gate, err := newSource(cfg.Location)
	if err != nil {
		return nil, err
	}

	transport := broker.NewTransport(broker.Options{
		Broker:         cfg.MQTT.Broker,
		QoS:            byte(cfg.MQTT.QoS),
		Retained:       cfg.MQTT.Retained,
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
		PublishTimeout: cfg.MQTT.PublishTimeout,
	})

	subject := NewSubject(cfg.SubjectID)
	hub := NewHub()
	session := telemetry.NewSession(transport, source, subject.Get,
		telemetry.WithChannel(cfg.MQTT.Channel),
		telemetry.WithUpdateHints(cfg.Location.Interval, cfg.Location.MinDistance),
		telemetry.WithListener(hub.Publish),
	)

	ctrl := NewController(session, gate, subject, hub)
	ctrl.clientID = transport.ClientID
	return ctrl, nil
}

func newSource(cfg config.LocationConfig) (gps.Source, PermissionGate, error) {
	switch cfg.Source {
	case config.SourceNMEA:
		return gps.NewNMEASource(cfg.SerialPort, uint(cfg.BaudRate)), SerialPermission(cfg.SerialPort), nil
	case config.SourceSimulated:
		origin := gps.Fix{Latitude: cfg.OriginLat, Longitude: cfg.OriginLon}
		return gps.NewSimulatedSource(origin, cfg.SpeedKmh, cfg.HeadingDeg), nil, nil
	}
	return nil, nil, errors.Errorf("unknown location source %q", cfg.Source)
}

// RunPublisher serves the console on in/out and, when configured, the web
// control surface, until ctx is done or the console quits. An active
// session is stopped on the way out.
func RunPublisher(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	ctrl, err := NewPublisher(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var srv *http.Server
	if cfg.Web.Listen != "" {
		srv = &http.Server{
			Addr:              cfg.Web.Listen,
			Handler:           NewWebHandler(ctrl),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.WithField("addr", cfg.Web.Listen).Info("web: listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("web: server stopped")
				cancel()
			}
		}()
	}

	go func() {
		quit, err := RunConsole(in, out, ctrl)
		if err != nil {
			log.WithError(err).Warn("console: read error")
		}
		if quit {
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("publisher: shutting down")

	if ctrl.Active() {
		ctrl.Stop()
	}
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("web: shutdown")
		}
	}
	return nil
}
