// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/location_publisher/internal/gps"
	"github.com/relabs-tech/location_publisher/internal/telemetry"
)

func doJSON(t *testing.T, method, url, contentType, body string, v any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestWebCommands(t *testing.T) {
	ctrl, tr, src, _ := newTestController(nil)
	srv := httptest.NewServer(NewWebHandler(ctrl))
	defer srv.Close()

	var resp commandResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/start", "", "", &resp))
	assert.Equal(t, commandResponse{Status: telemetry.StatusConnected, State: "active"}, resp)

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/start", "", "", &resp))
	assert.Equal(t, telemetry.StatusAlreadyPublishing, resp.Status)

	var st Status
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, srv.URL+"/api/subject", "application/json", `{"subject_id":"S7"}`, &st))
	assert.Equal(t, "S7", st.SubjectID)
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, srv.URL+"/api/subject", "text/plain", "S8\n", &st))
	assert.Equal(t, "S8", st.SubjectID)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPut, srv.URL+"/api/subject", "application/json", `{`, nil))

	src.deliver(gps.Fix{Latitude: 1, Longitude: 2, Time: time.Unix(0, 0)})
	require.Len(t, tr.payloads, 1)
	assert.Contains(t, tr.payloads[0], "StudentID: S8,")

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/status", "", "", &st))
	assert.Equal(t, "active", st.State)
	assert.Equal(t, uint64(1), st.Stats.Published)

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/stop", "", "", &resp))
	assert.Equal(t, commandResponse{Status: telemetry.StatusDisconnected, State: "disconnected"}, resp)

	assert.Equal(t, http.StatusMethodNotAllowed, doJSON(t, http.MethodGet, srv.URL+"/api/start", "", "", nil))
}

func TestWebSocketEvents(t *testing.T) {
	ctrl, _, _, _ := newTestController(nil)
	srv := httptest.NewServer(NewWebHandler(ctrl))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev StatusEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "idle", ev.State, "last event first")

	require.NoError(t, conn.WriteJSON(wsCommand{Command: "subject", SubjectID: "S3"}))
	require.NoError(t, conn.WriteJSON(wsCommand{Command: "start"}))

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, telemetry.StatusConnected, ev.Status)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, telemetry.StatusUpdatesStarted, ev.Status)
	assert.Equal(t, "S3", ctrl.Status().SubjectID)

	require.NoError(t, conn.WriteJSON(wsCommand{Command: "stop"}))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, telemetry.StatusUpdatesStopped, ev.Status)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, telemetry.StatusDisconnected, ev.Status)
	assert.Equal(t, "disconnected", ev.State)
}
