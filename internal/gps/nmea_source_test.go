// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"io"
	"testing"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcFirst  = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	rmcSecond = "$GPRMC,123529,A,4807.138,N,01131.000,E,022.4,084.4,230394,003.1,W*68"
	rmcVoid   = "$GPRMC,123539,V,4807.238,N,01131.000,E,022.4,084.4,230394,003.1,W*7D"
	ggaFix    = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
)

type fakePort struct {
	*io.PipeReader
}

func (p *fakePort) Write(b []byte) (int, error) {
	return len(b), nil
}

func TestParseRMC(t *testing.T) {
	fix, ok := ParseRMC(rmcFirst + "\r\n")
	require.True(t, ok)
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-6)
	assert.InDelta(t, 11.516667, fix.Longitude, 1e-6)
	assert.Equal(t, time.Date(1994, time.March, 23, 12, 35, 19, 0, time.UTC), fix.Time)

	for _, line := range []string{
		"",
		"garbage",
		rmcVoid,
		ggaFix,
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00",
	} {
		_, ok := ParseRMC(line)
		assert.False(t, ok, "line %q", line)
	}
}

func TestNMEASource(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	var opened serial.OpenOptions
	src := NewNMEASource("/dev/ttyFAKE", 9600)
	src.open = func(o serial.OpenOptions) (io.ReadWriteCloser, error) {
		opened = o
		return &fakePort{PipeReader: r}, nil
	}

	fixes := make(chan Fix, 4)
	require.NoError(t, src.StartUpdates(0, 0, func(f Fix) {
		fixes <- f
	}))
	assert.Equal(t, "/dev/ttyFAKE", opened.PortName)
	assert.Equal(t, uint(9600), opened.BaudRate)

	err := src.StartUpdates(0, 0, func(Fix) {})
	assert.Equal(t, ErrAlreadyStarted, err)

	go func() {
		_, _ = fmt.Fprintf(w, "%s\r\n%s\r\n%s\r\n%s\r\n", rmcFirst, ggaFix, rmcVoid, rmcSecond)
	}()

	first := recvFix(t, fixes)
	second := recvFix(t, fixes)
	assert.InDelta(t, 48.1173, first.Latitude, 1e-6)
	assert.InDelta(t, 48.118967, second.Latitude, 1e-6)
	assert.Equal(t, 10*time.Second, second.Time.Sub(first.Time))

	require.NoError(t, src.StopUpdates())
	require.NoError(t, src.StopUpdates(), "stopping twice is harmless")

	select {
	case f := <-fixes:
		assert.Fail(t, "unexpected fix", "%+v", f)
	default:
	}
}

func TestNMEASourceOpenError(t *testing.T) {
	src := NewNMEASource("/dev/missing", 9600)
	src.open = func(serial.OpenOptions) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}

	err := src.StartUpdates(DefaultInterval, DefaultMinDistance, func(Fix) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/missing")

	// a failed start leaves the source stopped
	assert.NoError(t, src.StopUpdates())
}

func recvFix(t *testing.T, fixes <-chan Fix) Fix {
	t.Helper()
	select {
	case f := <-fixes:
		return f
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for fix")
	}
	return Fix{}
}
