package runfeed

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/mhan/momo/pkg/logger"
)

const (
	// writeWait is the deadline for a single outbound frame
	writeWait = 10 * time.Second

	// pongWait is how long a silent peer stays connected
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; the feed is one-way
	maxMessageSize = 512

	// sendBuffer absorbs bursts before a client counts as slow
	sendBuffer = 16
)

// client is one websocket subscriber, owned by the hub
type client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	id          string
	connectedAt time.Time
	logger      *logger.Logger
}

// readPump drains inbound frames so pongs are processed and a closed
// peer is noticed promptly
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).WithField("client_id", c.id).Debug("Run feed read ended")
			}
			return
		}
		// Subscribers have nothing to say; inbound frames only keep
		// the connection alive
	}
}

// writePump writes queued events and pings on a ticker
func (c *client) writePump() {
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
				// Hub closed the channel
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
