package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tigerbot-team/notechaser/pkg/approach"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

type Log func(string, ...any)

// Message is one approach event as sent to telemetry clients.
type Message struct {
	Type        string    `json:"type"`
	Time        time.Time `json:"time"`
	Phase       string    `json:"phase"`
	Pitch       *float64  `json:"pitch,omitempty"`
	Yaw         *float64  `json:"yaw,omitempty"`
	Interrupted bool      `json:"interrupted,omitempty"`
}

func MessageFor(e approach.Event, t time.Time) Message {
	m := Message{
		Type:        e.Type.String(),
		Time:        t,
		Phase:       e.Phase.String(),
		Interrupted: e.Interrupted,
	}
	switch e.Type {
	case approach.EventTargetAcquired, approach.EventGatedOut:
		pitch, yaw := e.Target.Pitch, e.Target.Yaw
		m.Pitch = &pitch
		m.Yaw = &yaw
	}
	return m
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub streams approach events to any number of websocket clients.  Slow
// clients are dropped rather than allowed to hold up the control loop.
type Hub struct {
	Log Log

	upgrader websocket.Upgrader

	lock    sync.Mutex
	clients map[*client]struct{}
}

var _ approach.Observer = (*Hub)(nil)

func NewHub(log Log) *Hub {
	if log == nil {
		log = func(string, ...any) {}
	}
	return &Hub{
		Log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Anything on the pit network may watch.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log("Telemetry: upgrade failed: %v", err)
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.lock.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.lock.Unlock()
	h.Log("Telemetry: client %s connected from %s (%d clients)", c.id, r.RemoteAddr, n)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.Log("Telemetry: client %s gone (%d clients)", c.id, len(h.clients))
	}
}

// Broadcast never blocks.
func (h *Hub) Broadcast(msg []byte) {
	h.lock.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.lock.Unlock()

	for _, c := range slow {
		h.remove(c)
	}
}

func (h *Hub) OnApproachEvent(e approach.Event) {
	buf, err := json.Marshal(MessageFor(e, time.Now()))
	if err != nil {
		h.Log("Telemetry: failed to marshal event: %v", err)
		return
	}
	h.Broadcast(buf)
}

// readPump only watches for the client going away; clients don't send
// anything we act on.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	defer c.conn.Close()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Log("Telemetry: read from %s failed: %v", c.id, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve listens on addr until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/events", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	h.Log("Telemetry: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
