// internal/ws/hub.go
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/game"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultPingInterval = 15 * time.Second
	defaultSendBuffer   = 64
	writeTimeout        = 5 * time.Second
	readLimit           = 1 << 16
)

// IdentityVerifier resolves the identity carried by an upgrade request.
type IdentityVerifier interface {
	IdentityFromRequest(r *http.Request) (models.Identity, error)
}

// Options configures a Hub.
type Options struct {
	// AllowOrigins lists accepted Origin headers. "*" accepts any origin.
	// Requests without an Origin header are always accepted.
	AllowOrigins []string
	// Verifier, when set, is required to succeed before the upgrade.
	Verifier     IdentityVerifier
	PingInterval time.Duration
	SendBuffer   int
	Logger       logrus.FieldLogger
	Game         game.Options
}

// client is one websocket connection.
type client struct {
	id       uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
	identity *models.Identity // Verified identity, nil when auth is off.
}

// Hub tracks connections and broadcast groups and feeds client actions to the
// coordinator. It implements game.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	groups  map[string]map[uuid.UUID]struct{} // roomName -> members

	coord *game.Coordinator

	allowOrigins map[string]bool
	verifier     IdentityVerifier
	pingInterval time.Duration
	sendBuffer   int
	log          logrus.FieldLogger
}

// NewHub builds a hub and the coordinator that broadcasts through it.
func NewHub(opts Options) *Hub {
	allow := map[string]bool{}
	for _, o := range opts.AllowOrigins {
		if o != "" {
			allow[o] = true
		}
	}
	h := &Hub{
		clients:      map[uuid.UUID]*client{},
		groups:       map[string]map[uuid.UUID]struct{}{},
		allowOrigins: allow,
		verifier:     opts.Verifier,
		pingInterval: opts.PingInterval,
		sendBuffer:   opts.SendBuffer,
		log:          opts.Logger,
	}
	if h.pingInterval <= 0 {
		h.pingInterval = defaultPingInterval
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = defaultSendBuffer
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	gameOpts := opts.Game
	if gameOpts.Logger == nil {
		gameOpts.Logger = h.log
	}
	h.coord = game.NewCoordinator(h, gameOpts)
	return h
}

// Coordinator returns the coordinator driven by this hub.
func (h *Hub) Coordinator() *game.Coordinator { return h.coord }

// ClientCount reports the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ---------- game.Broadcaster ----------

func (h *Hub) JoinGroup(connID uuid.UUID, roomName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[roomName]
	if !ok {
		members = map[uuid.UUID]struct{}{}
		h.groups[roomName] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) LeaveGroup(connID uuid.UUID, roomName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[roomName]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, roomName)
		}
	}
}

func (h *Hub) BroadcastAll(ev game.Event) {
	msg, ok := h.encode(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, msg)
	}
}

func (h *Hub) BroadcastRoom(roomName string, ev game.Event) {
	msg, ok := h.encode(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[roomName] {
		if c, ok := h.clients[id]; ok {
			h.enqueue(c, msg)
		}
	}
}

// sendTo queues v for a single connection.
func (h *Hub) sendTo(connID uuid.UUID, v interface{}) {
	msg, ok := h.encode(v)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.enqueue(c, msg)
	}
}

func (h *Hub) encode(v interface{}) ([]byte, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("Failed to encode outbound frame.")
		return nil, false
	}
	return b, true
}

// enqueue never blocks; a full buffer drops the frame.
// Assumes h.mu is held (read or write) by caller.
func (h *Hub) enqueue(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.WithField("conn", c.id).Warn("Send buffer full, dropping frame.")
	}
}

// ---------- connections ----------

func (h *Hub) originAllowed(origin string) bool {
	return origin == "" || h.allowOrigins["*"] || h.allowOrigins[origin]
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.originAllowed(r.Header.Get("Origin")) {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	var identity *models.Identity
	if h.verifier != nil {
		id, err := h.verifier.IdentityFromRequest(r)
		if err != nil {
			h.log.WithError(err).Info("Rejected websocket upgrade.")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		identity = &id
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.WithError(err).Warn("Websocket accept failed.")
		return
	}
	conn.SetReadLimit(readLimit)

	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, h.sendBuffer), identity: identity}
	logger := h.log.WithField("conn", c.id)

	ctx, cancel := context.WithCancel(r.Context())
	h.register(c)
	logger.Info("Client connected.")

	defer func() {
		cancel()
		h.coord.Disconnect(c.id)
		h.unregister(c)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		logger.Info("Client disconnected.")
	}()

	go h.writePump(ctx, c)

	// The directory goes out as soon as the connection is registered.
	h.sendTo(c.id, game.Event{Type: game.EventActiveRooms, Payload: h.coord.ListRooms()})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				logger.WithError(err).Debug("Read loop ended.")
			}
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.WithError(err).Debug("Ignoring malformed frame.")
			continue
		}
		h.handle(c, f)
	}
}

// writePump drains the client's send queue and keeps the connection alive.
func (h *Hub) writePump(ctx context.Context, c *client) {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				_ = c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				_ = c.conn.Close(websocket.StatusPolicyViolation, "ping timeout")
				return
			}
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// unregister drops the client and any group memberships the coordinator
// did not already clear.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	for name, members := range h.groups {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.groups, name)
		}
	}
	close(c.send)
}

// CloseAll closes every open connection. Used on shutdown since hijacked
// connections outlive http.Server.Shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}(conn)
	}
	wg.Wait()
}
