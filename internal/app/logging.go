// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the process-wide logger.
func SetupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}
