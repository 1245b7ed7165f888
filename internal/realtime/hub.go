package realtime

import (
	"net/http" // HTTP status codes
	"strings"  // Bearer token parsing
	"time"     // Clock and durations

	"rewards_system/internal/metrics" // Prometheus collectors
	"rewards_system/internal/utils"   // JWT parsing

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/gorilla/websocket" // Websocket upgrades
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
	writeWait  = 10 * time.Second
)

// Hub upgrades authenticated clients to websockets and forwards their account's events
type Hub struct {
	rdb      *redis.Client
	secret   string
	upgrader websocket.Upgrader
}

// NewHub creates a hub reading events from rdb
func NewHub(rdb *redis.Client, jwtSecret string) *Hub {
	return &Hub{
		rdb:    rdb,
		secret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Token auth, not cookies
		},
	}
}

// Handler serves GET /ws. Browsers cannot set headers on websocket requests, so the token
// may also come in the "token" query parameter.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.rdb == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime updates are disabled", "code": "unavailable"})
			return
		}
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		claims, err := utils.ParseJWT(token, h.secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthorized"})
			return
		}
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logrus.WithError(err).Debug("Websocket upgrade failed")
			return
		}
		h.serve(c, conn, claims.AccountID)
	}
}

func (h *Hub) serve(c *gin.Context, conn *websocket.Conn, accountID uint) {
	ctx := c.Request.Context()
	sub := h.rdb.Subscribe(ctx, Channel(accountID))
	metrics.RealtimeSubscribers.Inc()
	log := logrus.WithField("account_id", accountID)
	log.Debug("Realtime subscriber connected")
	defer func() {
		_ = sub.Close()
		_ = conn.Close()
		metrics.RealtimeSubscribers.Dec()
		log.Debug("Realtime subscriber disconnected")
	}()

	// The read loop only exists to notice pongs and the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	events := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
