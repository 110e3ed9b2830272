package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client is a typed read-only wrapper over the local telemetry HTTP endpoint.
// Every query returns (snapshot, ok); ok is false on network error, empty
// body or schema violation. No retries — callers poll.
type Client struct {
	base    string
	http    *http.Client
	log     *zap.Logger

	mu      sync.Mutex
	latency map[string]time.Duration
}

// NewClient builds a client for http://127.0.0.1:<port> with a 2 s
// per-request timeout.
func NewClient(port int, log *zap.Logger) *Client {
	return &Client{
		base:    fmt.Sprintf("http://127.0.0.1:%d", port),
		http:    &http.Client{Timeout: 2 * time.Second},
		log:     log,
		latency: make(map[string]time.Duration),
	}
}

// LastLatency returns the duration of the most recent request to the given
// endpoint path, for diagnostics.
func (c *Client) LastLatency(endpoint string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.latency[endpoint]
	return d, ok
}

// get fetches and decodes one endpoint into out. Errors are absence-typed:
// the caller sees only ok=false, with the cause logged at debug level.
func (c *Client) get(endpoint string, query url.Values, out any) bool {
	u := c.base + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	start := time.Now()
	resp, err := c.http.Get(u)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.latency[endpoint] = elapsed
	c.mu.Unlock()

	if err != nil {
		c.log.Debug("telemetry unavailable", zap.String("endpoint", endpoint), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("telemetry bad status", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.log.Debug("telemetry malformed", zap.String("endpoint", endpoint), zap.Error(err))
		return false
	}
	return true
}

// Stats returns the /stats rows.
func (c *Client) Stats() ([]StatEntry, bool) {
	var out []StatEntry
	ok := c.get("/stats", nil, &out)
	return out, ok
}

// Player returns the /player snapshot.
func (c *Client) Player() (PlayerSnapshot, bool) {
	var out PlayerSnapshot
	ok := c.get("/player", nil, &out)
	return out, ok
}

// Coords returns the /coords snapshot.
func (c *Client) Coords() (CoordsSnapshot, bool) {
	var out CoordsSnapshot
	ok := c.get("/coords", nil, &out)
	return out, ok
}

// Combat returns the /combat snapshot.
func (c *Client) Combat() (CombatSnapshot, bool) {
	var out CombatSnapshot
	ok := c.get("/combat", nil, &out)
	return out, ok
}

// Animation returns the /animation snapshot.
func (c *Client) Animation() (AnimationSnapshot, bool) {
	var out AnimationSnapshot
	ok := c.get("/animation", nil, &out)
	return out, ok
}

// Inventory returns the /inv slots. Slot indices run 1..28.
func (c *Client) Inventory() ([]ItemSlot, bool) {
	var out []ItemSlot
	ok := c.get("/inv", nil, &out)
	return out, ok
}

// Equipment returns the /equip slots. Slot indices run 0..10.
func (c *Client) Equipment() ([]ItemSlot, bool) {
	var out []ItemSlot
	ok := c.get("/equip", nil, &out)
	return out, ok
}

// Bank returns the /bank slots, only meaningful while the bank is open.
func (c *Client) Bank() ([]ItemSlot, bool) {
	var out []ItemSlot
	ok := c.get("/bank", nil, &out)
	return out, ok
}

// Npcs returns every tracked NPC.
func (c *Client) Npcs() ([]NpcSnapshot, bool) {
	var out []NpcSnapshot
	ok := c.get("/npcs", nil, &out)
	return out, ok
}

// NpcsInViewport returns NPCs currently on screen.
func (c *Client) NpcsInViewport() ([]NpcSnapshot, bool) {
	var out []NpcSnapshot
	ok := c.get("/npcs_in_viewport", nil, &out)
	return out, ok
}

// Players returns other players near the avatar.
func (c *Client) Players() ([]NpcSnapshot, bool) {
	var out []NpcSnapshot
	ok := c.get("/players", nil, &out)
	return out, ok
}

// Objects returns every tracked world object.
func (c *Client) Objects() ([]ObjectSnapshot, bool) {
	var out []ObjectSnapshot
	ok := c.get("/objects", nil, &out)
	return out, ok
}

// ObjectsInViewport returns objects currently on screen.
func (c *Client) ObjectsInViewport() ([]ObjectSnapshot, bool) {
	var out []ObjectSnapshot
	ok := c.get("/objects_in_viewport", nil, &out)
	return out, ok
}

// GroundItems returns ground items around (x,y,plane) within radius.
func (c *Client) GroundItems(x, y int32, plane int8, radius int) ([]GroundItemSnapshot, bool) {
	q := url.Values{}
	q.Set("x", fmt.Sprint(x))
	q.Set("y", fmt.Sprint(y))
	q.Set("plane", fmt.Sprint(plane))
	q.Set("radius", fmt.Sprint(radius))
	var out []GroundItemSnapshot
	ok := c.get("/grounditems", q, &out)
	return out, ok
}

// Camera returns the /camera snapshot.
func (c *Client) Camera() (CameraSnapshot, bool) {
	var out CameraSnapshot
	ok := c.get("/camera", nil, &out)
	return out, ok
}

// GameState returns the /gameState snapshot.
func (c *Client) GameState() (GameStateSnapshot, bool) {
	var out GameStateSnapshot
	ok := c.get("/gameState", nil, &out)
	return out, ok
}

// Menu returns the /menu snapshot.
func (c *Client) Menu() (MenuSnapshot, bool) {
	var out MenuSnapshot
	ok := c.get("/menu", nil, &out)
	return out, ok
}

// Widgets returns the /widgets flags.
func (c *Client) Widgets() (WidgetsSnapshot, bool) {
	var out WidgetsSnapshot
	ok := c.get("/widgets", nil, &out)
	return out, ok
}

// Viewport returns the /viewport snapshot.
func (c *Client) Viewport() (ViewportSnapshot, bool) {
	var out ViewportSnapshot
	ok := c.get("/viewport", nil, &out)
	return out, ok
}

// MagicLevel returns the boosted magic level from /stats.
func (c *Client) MagicLevel() (int, bool) {
	stats, ok := c.Stats()
	if !ok {
		return 0, false
	}
	for _, s := range stats {
		if s.Stat == "Magic" {
			return s.BoostedLevel, true
		}
	}
	return 0, false
}

// CameraRotationTo returns the API-computed camera adjustment that would make
// the given world tile visible.
func (c *Client) CameraRotationTo(x, y int32, plane int8) (RotationSnapshot, bool) {
	q := url.Values{}
	q.Set("x", fmt.Sprint(x))
	q.Set("y", fmt.Sprint(y))
	q.Set("plane", fmt.Sprint(plane))
	var out RotationSnapshot
	ok := c.get("/camera_rotation", q, &out)
	return out, ok
}

// NearestByID returns the nearest entity with the given id, searched globally.
func (c *Client) NearestByID(id int, kind EntityKind) (NearestSnapshot, bool) {
	q := url.Values{}
	q.Set("id", fmt.Sprint(id))
	q.Set("type", string(kind))
	var out NearestSnapshot
	ok := c.get("/nearest_by_id", q, &out)
	if !ok || !out.Found {
		return out, false
	}
	return out, true
}
