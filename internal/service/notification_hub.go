package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"placeprep_backend/pkg/logger"
	"placeprep_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32

	// NotificationChannel is the Redis channel every instance's hub listens on.
	NotificationChannel = "notifications"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type pubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

type wsClient struct {
	hub    *NotificationHub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	// the stream is server-to-client; inbound frames are drained and dropped
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.userID))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]map[*wsClient]struct{}
	mu      sync.RWMutex
}

// NotificationHub fans notifications out to websocket connections. Messages travel through
// Redis pub/sub so a user connected to any instance receives them.
type NotificationHub struct {
	shards     [shardCount]*shard
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	Redis      *redis.Client
}

func NewNotificationHub(rdb *redis.Client) *NotificationHub {
	h := &NotificationHub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		Redis:      rdb,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[uint]map[*wsClient]struct{})}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

// Start subscribes to the notification channel and runs the connection bookkeeping until ctx
// is cancelled. The subscription is confirmed before Start returns.
func (h *NotificationHub) Start(ctx context.Context) error {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(ctx, NotificationChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			return err
		}
		go func() {
			defer pubsub.Close()
			ch := pubsub.Channel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					var ps pubSubMessage
					if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
						logger.Log.Error("Notification pubsub unmarshal failed", zap.Error(err))
						continue
					}
					h.pushLocal(ps.TargetUsers, ps.Payload)
				}
			}
		}()
	}
	go h.run(ctx)
	return nil
}

func (h *NotificationHub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stop()
			return
		case c := <-h.register:
			s := h.getShard(c.userID)
			s.mu.Lock()
			if s.clients[c.userID] == nil {
				s.clients[c.userID] = make(map[*wsClient]struct{})
			}
			s.clients[c.userID][c] = struct{}{}
			s.mu.Unlock()
			monitoring.WSConnections.Inc()
		case c := <-h.unregister:
			s := h.getShard(c.userID)
			s.mu.Lock()
			if conns, ok := s.clients[c.userID]; ok {
				if _, ok := conns[c]; ok {
					delete(conns, c)
					close(c.send)
					monitoring.WSConnections.Dec()
				}
				if len(conns) == 0 {
					delete(s.clients, c.userID)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (h *NotificationHub) stop() {
	close(h.done)
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, conns := range s.clients {
			for c := range conns {
				close(c.send)
				closed++
			}
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}
	monitoring.WSConnections.Set(0)
	logger.Log.Info("Notification hub stopped", zap.Int("closedConnections", closed))
}

// Publish routes msg to the given users on every instance.
func (h *NotificationHub) Publish(ctx context.Context, userIDs []uint, msg WSMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if h.Redis == nil {
		h.pushLocal(userIDs, payload)
		return nil
	}
	envelope, err := json.Marshal(pubSubMessage{TargetUsers: userIDs, Payload: payload})
	if err != nil {
		return err
	}
	return h.Redis.Publish(ctx, NotificationChannel, envelope).Err()
}

func (h *NotificationHub) pushLocal(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		for c := range s.clients[id] {
			select {
			case c.send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

// Online reports whether the user has a connection on this instance.
func (h *NotificationHub) Online(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID]) > 0
}

func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	c := &wsClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
