package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/guandan/internal/game"
	"github.com/sirupsen/logrus"
)

const (
	outBuffer    = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
)

// wsConn is one websocket session. It satisfies room.Connection: Write only
// queues, the write pump owns the socket.
type wsConn struct {
	id      uuid.UUID
	userID  uuid.UUID
	out     chan game.GameEvent
	closing chan struct{}
	once    sync.Once
	logger  *logrus.Logger

	// set once, before closing is closed
	closeCode   websocket.StatusCode
	closeReason string
}

func newWSConn(userID uuid.UUID, logger *logrus.Logger) *wsConn {
	return &wsConn{
		id:      uuid.New(),
		userID:  userID,
		out:     make(chan game.GameEvent, outBuffer),
		closing: make(chan struct{}),
		logger:  logger,
	}
}

func (c *wsConn) ID() uuid.UUID { return c.id }

// Write queues ev. Broadcast events for a slow client are dropped, but a
// private hand cannot be rebuilt from later events, so losing one closes the
// connection and the client resyncs through reconnect.
func (c *wsConn) Write(ev game.GameEvent) {
	select {
	case <-c.closing:
		return
	default:
	}
	select {
	case c.out <- ev:
	default:
		if ev.Type == game.EventYourHand {
			c.logger.Warnf("ws %s: outbound queue full for user %s, closing to resync hand", c.id, c.userID)
			c.closeWith(SlowConsumerError, "outbound queue overflow")
			return
		}
		c.logger.Warnf("ws %s: outbound queue full for user %s, dropping %s", c.id, c.userID, ev.Type)
	}
}

// Close asks the write pump to flush queued events and close the socket.
func (c *wsConn) Close() {
	c.closeWith(SessionReplacedError, "session replaced")
}

func (c *wsConn) closeWith(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.closing)
	})
}

func (c *wsConn) send(ctx context.Context, ws *websocket.Conn, ev game.GameEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warnf("ws %s: failed to marshal %s: %v", c.id, ev.Type, err)
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}

// flush sends whatever is still queued. It reports false if a write failed.
func (c *wsConn) flush(ctx context.Context, ws *websocket.Conn) bool {
	for {
		select {
		case ev := <-c.out:
			if err := c.send(ctx, ws, ev); err != nil {
				return false
			}
		default:
			return true
		}
	}
}

// writePump drains the outbound queue and keeps the connection alive with pings.
func (c *wsConn) writePump(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closing:
			// A client that overflowed its queue gets nothing more.
			if c.closeCode != SlowConsumerError && !c.flush(ctx, ws) {
				return
			}
			_ = ws.Close(c.closeCode, c.closeReason)
			return
		case ev := <-c.out:
			if err := c.send(ctx, ws, ev); err != nil {
				c.logger.Warnf("ws %s: write failed for user %s: %v", c.id, c.userID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Warnf("ws %s: ping failed for user %s: %v", c.id, c.userID, err)
				return
			}
		}
	}
}
