package api

import (
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evgenius1424/need-for-fun/internal/protocol"
	"github.com/evgenius1424/need-for-fun/internal/room"
	"github.com/evgenius1424/need-for-fun/internal/session"
)

const (
	// MaxWSConnectionsTotal caps concurrent WebSocket connections.
	MaxWSConnectionsTotal = 500
	// MaxWSConnectionsPerIP caps connections per source IP.
	MaxWSConnectionsPerIP = 10

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	maxInboundFrame = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket rejected from origin %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// Gateway owns the WebSocket endpoint: per-connection player id
// allocation, the session pump and the outbound write loop.
type Gateway struct {
	manager         *room.Manager
	defaults        session.Defaults
	serverStartedAt time.Time

	nextPlayerID atomic.Uint64
	activeConns  atomic.Int64
	wsLimiter    *WebSocketRateLimiter
}

// NewGateway creates the WebSocket gateway.
func NewGateway(manager *room.Manager, defaults session.Defaults, serverStartedAt time.Time) *Gateway {
	return &Gateway{
		manager:         manager,
		defaults:        defaults,
		serverStartedAt: serverStartedAt,
		wsLimiter:       NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// HandleWS upgrades the connection and runs the session until the peer
// disconnects.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if g.activeConns.Load() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !g.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		g.wsLimiter.Release(ip)
		return
	}

	count := g.activeConns.Add(1)
	UpdateWSConnections(int(count))

	playerID := g.nextPlayerID.Add(1)
	out := room.NewOutbound()
	sess := session.New(playerID, g.manager, out, g.defaults, g.serverStartedAt)

	log.Printf("player %d connected from %s (%d total)", playerID, ip, count)

	done := make(chan struct{})
	go g.writePump(conn, out, done)

	// The peer learns its id before anything else.
	_ = out.TrySend(protocol.EncodeWelcome(playerID))

	g.readPump(conn, sess)

	sess.Close()
	close(done)
	conn.Close()
	g.wsLimiter.Release(ip)
	count = g.activeConns.Add(-1)
	UpdateWSConnections(int(count))
	log.Printf("player %d disconnected (%d remaining)", playerID, count)
}

// readPump decodes inbound binary frames and feeds the session. Protocol
// errors drop the frame, not the connection.
func (g *Gateway) readPump(conn *websocket.Conn, sess *session.Session) {
	conn.SetReadLimit(maxInboundFrame)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		RecordWSFrame()

		msg, err := protocol.DecodeClientMessage(payload)
		if err != nil {
			log.Printf("player %d: dropping bad frame: %v", sess.PlayerID(), err)
			RecordProtocolError()
			continue
		}
		sess.Handle(msg)
	}
}

// writePump drains the session's outbound queue into the socket and
// keeps the connection alive with pings.
func (g *Gateway) writePump(conn *websocket.Conn, out *room.Outbound, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-out.Recv():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
