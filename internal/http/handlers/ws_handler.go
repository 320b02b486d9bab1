package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/auth"
	"github.com/influencer-campaigns/backend/internal/events"
)

// WSHub pushes application and payout events to the participant they concern.
type WSHub struct {
	secret      string
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
}

func NewWSHub(secret string, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		secret:      secret,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[uuid.UUID][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	for _, stream := range []string{events.StreamApplication, events.StreamFinance} {
		if err := h.subscriber.Subscribe(ctx, stream, h.route); err != nil {
			h.log.Warn("ws hub subscribe failed", zap.String("stream", stream), zap.Error(err))
		}
	}
}

// route delivers an event to the user named in its payload. Events without a
// user (e.g. settlements) are not pushed.
func (h *WSHub) route(event events.Event) {
	userID, err := uuid.Parse(event.String("user_id"))
	if err != nil {
		return
	}
	h.SendToUser(userID, event)
}

func (h *WSHub) SendToUser(userID uuid.UUID, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	// Exclusive: a socket must not be written from two subscriber goroutines at once.
	h.mu.Lock()
	defer h.mu.Unlock()

	live := h.connections[userID][:0]
	for _, conn := range h.connections[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("dropping websocket", zap.String("user_id", userID.String()), zap.Error(err))
			_ = conn.Close()
			continue
		}
		live = append(live, conn)
	}
	if len(live) == 0 {
		delete(h.connections, userID)
		return
	}
	h.connections[userID] = live
}

// Connected reports how many sockets userID holds.
func (h *WSHub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// WSUpgradeMiddleware rejects plain HTTP requests to /ws.
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.secret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	userID := claims.UserID

	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[userID]
		for i, c := range conns {
			if c == conn {
				h.connections[userID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[userID]) == 0 {
			delete(h.connections, userID)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Clients only listen; reading keeps pings flowing and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
