package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestClient points a Client at an httptest server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClient(port, zap.NewNop())
}

func TestPlayerSnapshot(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/player", r.URL.Path)
		w.Write([]byte(`{"name":"Tester","combatLevel":70,"health":58,"maxHealth":99,
			"runEnergy":87,"isAnimating":true,"animationId":625,"extraField":1}`))
	}))

	p, ok := c.Player()
	require.True(t, ok)
	assert.Equal(t, "Tester", p.Name)
	assert.Equal(t, 625, p.AnimationID)
	assert.Equal(t, 58, p.HealthPercent())
	assert.Nil(t, p.InteractingWith)
}

func TestAbsenceOnErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
		{"bad status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }},
		{"malformed", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"name":`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, ok := c.Player()
			assert.False(t, ok)
		})
	}
}

func TestLatencyTracked(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"yaw":1024,"pitch":256,"scale":512}`))
	}))

	_, ok := c.Camera()
	require.True(t, ok)
	d, tracked := c.LastLatency("/camera")
	assert.True(t, tracked)
	assert.Greater(t, d.Nanoseconds(), int64(0))
}

func TestGroundItemsQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "3285", q.Get("x"))
		assert.Equal(t, "3", q.Get("radius"))
		w.Write([]byte(`[{"id":526,"name":"Bones","quantity":1,"worldX":3285,"worldY":3420}]`))
	}))

	items, ok := c.GroundItems(3285, 3420, 0, 3)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, 526, items[0].ID)
}

func TestNearestByIDNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"found":false}`))
	}))
	_, ok := c.NearestByID(1278, KindObject)
	assert.False(t, ok)
}

func TestMagicLevel(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/stats") {
			w.WriteHeader(404)
			return
		}
		w.Write([]byte(`[{"stat":"Attack","level":60,"boostedLevel":60},
			{"stat":"Magic","level":55,"boostedLevel":59}]`))
	}))

	lvl, ok := c.MagicLevel()
	require.True(t, ok)
	assert.Equal(t, 59, lvl)
}

func TestNpcHealthPercent(t *testing.T) {
	n := NpcSnapshot{HealthRatio: 15, HealthScale: 30}
	assert.Equal(t, 50, n.HealthPercent())
	assert.Equal(t, -1, NpcSnapshot{}.HealthPercent())
}
