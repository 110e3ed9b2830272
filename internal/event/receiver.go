package event

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// GameEvent is one pushed callback from the game client. Only the type tag
// is interpreted; the payload is carried opaquely for subscribers.
type GameEvent struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"-"`
}

// Known event type tags. The client may send others; they pass through
// unfiltered.
const (
	TypeMovement        = "movement"
	TypeAnimation       = "animation"
	TypeTarget          = "target"
	TypeState           = "state"
	TypeItemSpawn       = "item_spawn"
	TypeItemDespawn     = "item_despawn"
	TypeNpcSpawn        = "npc_spawn"
	TypeNpcDespawn      = "npc_despawn"
	TypeObjectSpawn     = "object_spawn"
	TypeObjectDespawn   = "object_despawn"
	TypeActorDeath      = "actor_death"
	TypeStatChange      = "stat_change"
	TypeContainerChange = "container_change"
	TypeChat            = "chat"
	TypeMenuOption      = "menu_option"
	TypeInterfaceOpen   = "interface_open"
	TypeInterfaceClose  = "interface_close"
	TypeSidebar         = "sidebar"
)

// Receiver hosts the fire-and-forget POST sink the game client pushes
// events to. It runs on its own goroutine; its only output is Emit onto
// the bus.
type Receiver struct {
	bus *Bus
	log *zap.Logger
	srv *http.Server

	now func() time.Time
}

// NewReceiver builds a receiver bound to addr, serving POST /event.
func NewReceiver(addr string, bus *Bus, log *zap.Logger) *Receiver {
	r := &Receiver{bus: bus, log: log, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("/event", r.handleEvent)
	r.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return r
}

// Start begins serving on the configured address. Non-blocking.
func (r *Receiver) Start() error {
	ln, err := net.Listen("tcp", r.srv.Addr)
	if err != nil {
		return err
	}
	r.log.Info("event receiver listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := r.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			r.log.Error("event receiver stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the listener, waiting for in-flight posts.
func (r *Receiver) Shutdown(ctx context.Context) error {
	return r.srv.Shutdown(ctx)
}

func (r *Receiver) handleEvent(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var ev GameEvent
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		r.log.Debug("discarding malformed event", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if ev.Type == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	ev.ReceivedAt = r.now()

	Emit(r.bus, ev)
	w.WriteHeader(http.StatusNoContent)
}
