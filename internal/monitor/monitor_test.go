package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMonitor(t *testing.T) (*Server, string) {
	t.Helper()
	s := NewServer("127.0.0.1:0", zap.NewNop())
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != n {
		require.True(t, time.Now().Before(deadline), "waiting for %d clients", n)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	s, url := newTestMonitor(t)
	c1 := dial(t, url)
	c2 := dial(t, url)
	waitForClients(t, s, 2)

	s.Broadcast(Status{State: "GATHERING", X: 3285, Y: 3420, XPGained: 1200})

	for _, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got Status
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, "GATHERING", got.State)
		assert.Equal(t, int32(3285), got.X)
		assert.Equal(t, int64(1200), got.XPGained)
	}
}

func TestClosedClientIsDropped(t *testing.T) {
	s, url := newTestMonitor(t)
	c := dial(t, url)
	waitForClients(t, s, 1)

	c.Close()
	// The drain goroutine notices the close.
	waitForClients(t, s, 0)

	s.Broadcast(Status{State: "IDLE"})
	assert.Zero(t, s.ClientCount())
}

func TestBroadcastWithoutClientsIsNoOp(t *testing.T) {
	s, _ := newTestMonitor(t)
	s.Broadcast(Status{State: "IDLE"})
	assert.Zero(t, s.ClientCount())
}
