package telemetry

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/notechaser/pkg/approach"
	"github.com/tigerbot-team/notechaser/pkg/vision"
)

func TestMessageFor(t *testing.T) {
	stamp := time.Unix(10, 0)
	m := MessageFor(approach.Event{
		Type:   approach.EventGatedOut,
		Phase:  approach.Pursuing,
		Target: vision.Detection{Pitch: 20, Yaw: -3},
	}, stamp)
	require.NotNil(t, m.Pitch)
	require.NotNil(t, m.Yaw)
	assert.Equal(t, 20.0, *m.Pitch)
	assert.Equal(t, -3.0, *m.Yaw)
	assert.Equal(t, "gated-out", m.Type)
	assert.Equal(t, "pursuing", m.Phase)

	// Targets are only reported for events that have one.
	m = MessageFor(approach.Event{
		Type:        approach.EventStopped,
		Phase:       approach.Finished,
		Target:      vision.Detection{Pitch: 20},
		Interrupted: true,
	}, stamp)
	assert.Nil(t, m.Pitch)
	assert.Nil(t, m.Yaw)
	assert.True(t, m.Interrupted)
}

func TestMessageKeepsCentredTarget(t *testing.T) {
	m := MessageFor(approach.Event{
		Type:   approach.EventTargetAcquired,
		Phase:  approach.Pursuing,
		Target: vision.Detection{Pitch: 0, Yaw: 0},
	}, time.Unix(10, 0))
	b, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "pitch")
	assert.Contains(t, raw, "yaw")
	assert.Equal(t, 0.0, raw["yaw"])
}

func TestHubStreamsEvents(t *testing.T) {
	hub := NewHub(t.Logf)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, time.Millisecond)

	hub.OnApproachEvent(approach.Event{Type: approach.EventStarted, Phase: approach.Pursuing})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, buf, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(buf, &m))
	assert.Equal(t, "started", m.Type)
	assert.Equal(t, "pursuing", m.Phase)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, time.Millisecond)
}

func TestBroadcastWithNoClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Broadcast([]byte("x"))
	assert.Zero(t, hub.Clients())
}
