package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipehub/domain"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop(), nil)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(NewHandler(hub, zap.NewNop()))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gws.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, srv := newTestHub(t)

	first := dial(t, srv)
	second := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	hub.Broadcast(domain.EventRecipeDeleted, domain.DeletedPayload{ID: "r1"})

	for _, conn := range []*gws.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, domain.EventRecipeDeleted, ev.Type)
		payload, ok := ev.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "r1", payload["id"])
	}
}

func TestOriginatorReceivesItsOwnEvent(t *testing.T) {
	hub, srv := newTestHub(t)

	// A single connection stands in for the mutation's originator; the hub
	// does not suppress self-notification.
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Broadcast(domain.EventAnnouncement, domain.AnnouncementPayload{Title: "hi"})

	ev := readEvent(t, conn)
	assert.Equal(t, domain.EventAnnouncement, ev.Type)
}

func TestDisconnectedClientIsUnregistered(t *testing.T) {
	hub, srv := newTestHub(t)

	first := dial(t, srv)
	second := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// The surviving channel is unaffected.
	hub.Broadcast(domain.EventRecipeUpserted, domain.Recipe{ID: "r2"})
	ev := readEvent(t, first)
	assert.Equal(t, domain.EventRecipeUpserted, ev.Type)
}

func TestBroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	hub, _ := newTestHub(t)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(domain.EventAnnouncement, domain.AnnouncementPayload{Title: "nobody home"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked with no clients connected")
	}
}

func TestShutdownClosesConnections(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	go hub.Run()
	srv := httptest.NewServer(NewHandler(hub, zap.NewNop()))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
