// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type commandResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// wsCommand is what a websocket client may send.
type wsCommand struct {
	Command   string `json:"command"` // "start", "stop" or "subject"
	SubjectID string `json:"subject_id,omitempty"`
}

// NewWebHandler exposes the controller over HTTP:
//
//	POST /api/start    start publishing
//	POST /api/stop     stop publishing
//	GET  /api/status   state, last event, subject id, counters
//	PUT  /api/subject  replace the subject id (JSON {"subject_id": ...} or plain text)
//	GET  /ws           websocket stream of status events; accepts wsCommand
func NewWebHandler(ctrl *Controller) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/start", func(w http.ResponseWriter, r *http.Request) {
		status := ctrl.Start()
		writeJSON(w, commandResponse{Status: status, State: ctrl.Status().State})
	})

	mux.HandleFunc("POST /api/stop", func(w http.ResponseWriter, r *http.Request) {
		status := ctrl.Stop()
		writeJSON(w, commandResponse{Status: status, State: ctrl.Status().State})
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ctrl.Status())
	})

	mux.HandleFunc("PUT /api/subject", func(w http.ResponseWriter, r *http.Request) {
		id, err := readSubject(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctrl.SetSubject(id)
		writeJSON(w, ctrl.Status())
	})

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("web: websocket upgrade")
			return
		}
		serveEvents(conn, ctrl)
	})

	return mux
}

func readSubject(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			SubjectID string `json:"subject_id"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", err
		}
		return req.SubjectID, nil
	}
	return string(body), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("web: json encode")
	}
}

// serveEvents writes the last event and then every new one until the
// client goes away. Commands read from the client are run on the
// controller; their outcome arrives as events.
func serveEvents(conn *websocket.Conn, ctrl *Controller) {
	events, release := ctrl.hub.Subscribe()
	defer release()
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			switch cmd.Command {
			case "start":
				ctrl.Start()
			case "stop":
				ctrl.Stop()
			case "subject":
				ctrl.SetSubject(cmd.SubjectID)
			default:
				log.WithField("command", cmd.Command).Warn("web: unknown websocket command")
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	if err := writeEvent(conn, ctrl.hub.Last()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev StatusEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}
