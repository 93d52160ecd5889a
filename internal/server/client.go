package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/config"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// resyncRequest is the one out-of-band client message handled by the
// transport instead of the engine.
const resyncRequest = "resync"

// wsClient is one websocket connection bound to a user in one session.
type wsClient struct {
	session *Session
	conn    *websocket.Conn
	logger  *zap.Logger

	userID string
	admin  bool

	sendCh       chan *message.ServerMessage
	closeOnce    sync.Once
	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func newClient(session *Session, conn *websocket.Conn, userID string, admin bool, cfg config.ServerConfig, logger *zap.Logger) *wsClient {
	return &wsClient{
		session:      session,
		conn:         conn,
		logger:       logger.With(zap.String("user", userID)),
		userID:       userID,
		admin:        admin,
		sendCh:       make(chan *message.ServerMessage, cfg.SendBuffer),
		writeTimeout: cfg.WriteTimeout,
		pongTimeout:  cfg.PongTimeout,
	}
}

// enqueue hands a message to the write pump. A slow client loses the
// connection rather than blocking the engine.
func (c *wsClient) enqueue(msg *message.ServerMessage) {
	select {
	case c.sendCh <- msg:
	default:
		c.logger.Warn("client send buffer full, dropping connection")
		c.close()
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

func (c *wsClient) readPump() {
	defer func() {
		c.session.detach(c)
		c.close()
	}()
	c.conn.SetReadLimit(64 << 10)
	c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		var msg message.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("undecodable client message", zap.Error(err))
			continue
		}
		if msg.Type == resyncRequest {
			c.session.requestResync(c)
			continue
		}
		c.session.handleClientMessage(c.userID, &msg)
	}
}

func (c *wsClient) writePump() {
	pingInterval := c.pongTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
