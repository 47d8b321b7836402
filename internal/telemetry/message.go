// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Channel is the broker topic location messages are published to.
const Channel = "assignment/location"

const (
	labelSubject   = "StudentID: "
	labelLatitude  = ", Latitude: "
	labelLongitude = ", Longitude: "
	labelSpeed     = ", Speed: "
)

// ErrMalformedMessage is returned by ParseMessage for text that is not a
// location message.
var ErrMalformedMessage = errors.New("malformed location message")

// Message is one published location sample.
type Message struct {
	SubjectID string
	Latitude  float64
	Longitude float64
	Speed     float32 // km/h
}

// Text renders the wire payload, e.g.
//
//	StudentID: S1, Latitude: 10.0, Longitude: 20.0, Speed: 5.25
//
// Field order and labels are fixed; subscribers parse this text.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(labelSubject)
	b.WriteString(m.SubjectID)
	b.WriteString(labelLatitude)
	b.WriteString(formatNumber(m.Latitude, 64))
	b.WriteString(labelLongitude)
	b.WriteString(formatNumber(m.Longitude, 64))
	b.WriteString(labelSpeed)
	b.WriteString(formatNumber(float64(m.Speed), 32))
	return b.String()
}

// ParseMessage is the inverse of Message.Text.
func ParseMessage(text string) (Message, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), labelSubject)
	if !ok {
		return Message{}, errors.Wrapf(ErrMalformedMessage, "missing %q", strings.TrimSpace(labelSubject))
	}

	// the subject id is free text, so anchor on the last latitude label
	i := strings.LastIndex(rest, labelLatitude)
	if i < 0 {
		return Message{}, errors.Wrap(ErrMalformedMessage, "missing latitude")
	}
	m := Message{SubjectID: rest[:i]}
	rest = rest[i+len(labelLatitude):]

	latText, rest, ok := strings.Cut(rest, labelLongitude)
	if !ok {
		return Message{}, errors.Wrap(ErrMalformedMessage, "missing longitude")
	}
	lonText, speedText, ok := strings.Cut(rest, labelSpeed)
	if !ok {
		return Message{}, errors.Wrap(ErrMalformedMessage, "missing speed")
	}

	var err error
	if m.Latitude, err = strconv.ParseFloat(latText, 64); err != nil {
		return Message{}, errors.Wrapf(ErrMalformedMessage, "latitude %q", latText)
	}
	if m.Longitude, err = strconv.ParseFloat(lonText, 64); err != nil {
		return Message{}, errors.Wrapf(ErrMalformedMessage, "longitude %q", lonText)
	}
	speed, err := strconv.ParseFloat(speedText, 32)
	if err != nil {
		return Message{}, errors.Wrapf(ErrMalformedMessage, "speed %q", speedText)
	}
	m.Speed = float32(speed)

	return m, nil
}

// formatNumber renders v the way the JVM prints doubles and floats: the
// shortest round-trip digits, always with a fractional part, switching to
// "d.dddEn" notation outside [1e-3, 1e7).
func formatNumber(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}

	abs := math.Abs(v)
	if v == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(v, 'f', -1, bitSize)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	s := strconv.FormatFloat(v, 'E', -1, bitSize)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(e)
}
