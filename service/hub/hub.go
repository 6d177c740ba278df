package hub

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/goroutine"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 256
)

var timeNow = time.Now

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// frame is the envelope delivered to subscribed sessions and relayed across
// instances through the bridge
type frame struct {
	Scope domain.Scope  `json:"scope"`
	Event *domain.Event `json:"event"`
}

// command is what a session may send upstream
type command struct {
	Action string       `json:"action"`
	Scope  domain.Scope `json:"scope"`
}

// Bridge relays frames between hub instances so a session connected anywhere
// sees every event.
type Bridge interface {
	Publish(c ctx.Ctx, scope domain.Scope, payload []byte) error
	Run(c ctx.Ctx, deliver func(scope domain.Scope, payload []byte))
}

type HubCfg struct {
	Bridge  Bridge
	Metrics metrics.Service
}

// Hub fans events out to websocket sessions grouped by scope. Every session
// joins the global scope on connect and may subscribe to asset scopes and its
// own user scope. Delivery is best effort: a session that cannot keep up is
// dropped rather than allowed to stall the rest.
type Hub struct {
	bridge Bridge
	met    metrics.Service

	mu     sync.RWMutex
	scopes map[domain.Scope]map[*session]struct{}
}

func New(cfg *HubCfg) *Hub {
	met := cfg.Metrics
	if met == nil {
		met = metrics.New("hub")
	}
	return &Hub{
		bridge: cfg.Bridge,
		met:    met,
		scopes: map[domain.Scope]map[*session]struct{}{},
	}
}

// Run starts the bridge subscriber. Without a bridge events only reach
// sessions connected to this instance.
func (h *Hub) Run(c ctx.Ctx) {
	if h.bridge == nil {
		return
	}
	h.bridge.Run(c, func(scope domain.Scope, payload []byte) {
		h.deliver(scope, payload)
	})
}

// Publish implements domain.EventPublisher
func (h *Hub) Publish(c ctx.Ctx, e *domain.Event) {
	for _, scope := range e.Scopes() {
		payload, err := json.Marshal(frame{Scope: scope, Event: e})
		if err != nil {
			c.WithField("err", err).Error("json.Marshal failed")
			return
		}

		if h.bridge != nil {
			if err := h.bridge.Publish(c, scope, payload); err == nil {
				continue
			}
			// the bridge subscriber would have echoed it back; without the
			// bridge at least local sessions still get the event
			c.WithFields(log.Fields{
				"scope": scope,
				"type":  e.Type,
			}).Warn("bridge.Publish failed, delivering locally")
		}
		h.deliver(scope, payload)
	}
	h.met.BumpSum("publish", 1, "type", string(e.Type))
}

func (h *Hub) deliver(scope domain.Scope, payload []byte) {
	var slow []*session

	h.mu.RLock()
	for s := range h.scopes[scope] {
		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.met.BumpSum("session.dropped", 1)
		h.remove(s)
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(s, domain.ScopeGlobal)
	if !s.address.IsEmpty() {
		h.joinLocked(s, domain.UserScope(s.address))
	}
	h.met.BumpAvg("session.scopes", float64(len(s.scopes)))
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	for scope := range s.scopes {
		h.leaveLocked(s, scope)
	}
	h.mu.Unlock()
	s.close()
}

func (h *Hub) subscribe(s *session, scope domain.Scope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(s, scope)
}

func (h *Hub) unsubscribe(s *session, scope domain.Scope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, scope)
}

func (h *Hub) joinLocked(s *session, scope domain.Scope) {
	if _, ok := h.scopes[scope]; !ok {
		h.scopes[scope] = map[*session]struct{}{}
	}
	h.scopes[scope][s] = struct{}{}
	s.scopes[scope] = struct{}{}
}

func (h *Hub) leaveLocked(s *session, scope domain.Scope) {
	delete(s.scopes, scope)
	if peers, ok := h.scopes[scope]; ok {
		delete(peers, s)
		if len(peers) == 0 {
			delete(h.scopes, scope)
		}
	}
}

// ServeWs upgrades the request and attaches the session to the hub. The
// session address comes from the optional auth middleware and gates the user
// scope.
func (h *Hub) ServeWs(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		context.WithField("err", err).Warn("upgrader.Upgrade failed")
		return err
	}

	address := domain.Address("")
	if ads, ok := c.Get("address").(domain.Address); ok {
		address = ads.ToLower()
	}

	s := &session{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		address: address,
		scopes:  map[domain.Scope]struct{}{},
	}
	h.add(s)
	h.met.BumpSum("session.connected", 1)

	goroutine.RecoverableGo(func() { s.writePump() })
	goroutine.RecoverableGo(func() { s.readPump(context) })
	return nil
}

type session struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	address domain.Address
	scopes  map[domain.Scope]struct{}

	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// canJoin limits subscriptions to asset scopes and the session's own user
// scope
func (s *session) canJoin(scope domain.Scope) bool {
	if scope == domain.ScopeGlobal {
		return true
	}
	if !s.address.IsEmpty() && scope == domain.UserScope(s.address) {
		return true
	}
	return strings.HasPrefix(string(scope), "asset:")
}

// readPump consumes subscribe and unsubscribe commands until the peer goes
// away
func (s *session) readPump(c ctx.Ctx) {
	defer func() {
		s.hub.remove(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(timeNow().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(timeNow().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.WithField("err", err).Warn("conn.ReadMessage failed")
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.WithField("err", err).Warn("json.Unmarshal failed")
			continue
		}

		switch cmd.Action {
		case "subscribe":
			if s.canJoin(cmd.Scope) {
				s.hub.subscribe(s, cmd.Scope)
			}
		case "unsubscribe":
			s.hub.unsubscribe(s, cmd.Scope)
		}
	}
}

// writePump drains the send channel and keeps the connection alive with pings
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(timeNow().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(timeNow().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
