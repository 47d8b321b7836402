// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrAlreadyStarted is returned by StartUpdates when updates are running.
var ErrAlreadyStarted = errors.New("location updates already started")

// NMEASource reads NMEA sentences from a serial GPS receiver and emits one
// Fix per valid RMC sentence.
type NMEASource struct {
	PortName string
	BaudRate uint

	open func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu      sync.Mutex
	port    io.ReadWriteCloser
	stopped chan struct{}
}

func NewNMEASource(portName string, baudRate uint) *NMEASource {
	return &NMEASource{
		PortName: portName,
		BaudRate: baudRate,
		open:     serial.Open,
	}
}

func (s *NMEASource) StartUpdates(interval time.Duration, minDistance float64, onFix func(Fix)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return ErrAlreadyStarted
	}

	// NOTE: PortName is usually /dev/serial0, /dev/ttyAMA0 or /dev/ttyUSB0.
	serialOpts := serial.OpenOptions{
		PortName:              s.PortName,
		BaudRate:              s.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := s.open(serialOpts)
	if err != nil {
		return errors.Wrapf(err, "open GPS serial port %s", s.PortName)
	}
	log.WithFields(log.Fields{
		"port": s.PortName,
		"baud": s.BaudRate,
	}).Info("gps: serial port opened")

	s.port = port
	s.stopped = make(chan struct{})
	gate := &throttle{interval: interval, minDistance: minDistance}
	go s.run(port, gate, onFix, s.stopped)

	return nil
}

// StopUpdates closes the port. It does not wait for the reader goroutine,
// which may be blocked inside onFix.
func (s *NMEASource) StopUpdates() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	close(s.stopped)
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return errors.Wrapf(err, "close GPS serial port %s", s.PortName)
	}
	log.WithField("port", s.PortName).Info("gps: serial port closed")
	return nil
}

func (s *NMEASource) run(port io.Reader, gate *throttle, onFix func(Fix), stopped <-chan struct{}) {
	reader := bufio.NewReader(port)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			select {
			case <-stopped:
			default:
				log.WithError(err).WithField("port", s.PortName).Error("gps: read error")
			}
			return
		}

		fix, ok := ParseRMC(line)
		if !ok || !gate.admit(fix) {
			continue
		}

		select {
		case <-stopped:
			return
		default:
		}
		onFix(fix)
	}
}

// ParseRMC extracts a Fix from a single NMEA line. It reports false for
// anything other than a well-formed, valid RMC sentence.
func ParseRMC(line string) (Fix, bool) {
	line = strings.TrimSpace(line)

	// NMEA sentences usually start with '$'
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		log.WithError(err).Debugf("gps: NMEA parse error (line: %q)", line)
		return Fix{}, false
	}
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false
	}

	m := sentence.(nmea.RMC)
	if m.Validity != nmea.ValidRMC || !m.Date.Valid || !m.Time.Valid {
		return Fix{}, false
	}

	// RMC carries a two-digit year
	year := 2000 + m.Date.YY
	if m.Date.YY >= 80 {
		year = 1900 + m.Date.YY
	}

	return Fix{
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Time: time.Date(
			year, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond),
			time.UTC,
		),
	}, true
}
