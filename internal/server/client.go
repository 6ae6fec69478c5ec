package server

import (
	"context"
	"net/http"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/internal/engine"
	"traffic-server/pkg/api"
	"traffic-server/pkg/logger"
	"traffic-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocket settings
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client connects one viewer websocket to the simulation service.
type Client struct {
	Service   *engine.Service
	Conn      *websocket.Conn
	Send      chan api.ServerResponse
	SessionID string
	// Binary viewers receive snapshots as protobuf frames.
	Binary bool

	log *logrus.Entry
}

func NewClient(svc *engine.Service, conn *websocket.Conn, binary bool) *Client {
	id := utils.GenerateID()
	return &Client{
		Service:   svc,
		Conn:      conn,
		Send:      make(chan api.ServerResponse, 256),
		SessionID: id,
		Binary:    binary,
		log:       logger.Log.WithFields(logrus.Fields{"component": "ws", "session": id}),
	}
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.WithError(err).Error("Upgrade error")
		return
	}

	client := NewClient(s.Service, conn, c.Query("format") == "binary")
	client.start()
}

// start greets the viewer, subscribes it to the broadcaster and runs the pumps.
func (c *Client) start() {
	snap := c.Service.Snapshot()
	c.Send <- api.ServerResponse{Type: api.TypeWelcome, Tick: snap.Tick, SessionID: c.SessionID}
	c.Send <- api.ServerResponse{Type: api.TypeSnapshot, Tick: snap.Tick, Snapshot: snap}

	updates := c.Service.Hub.Register(c.SessionID)
	go func() {
		for msg := range updates {
			c.enqueue(msg)
		}
		close(c.Send)
	}()

	c.log.Info("Viewer connected")
	go c.writePump()
	go c.readPump()
}

// enqueue drops the message when the viewer is too slow.
func (c *Client) enqueue(msg api.ServerResponse) {
	select {
	case c.Send <- msg:
	default:
		c.log.WithField("type", msg.Type).Debug("Send buffer full, message dropped")
	}
}

// readPump reads viewer commands until the connection closes.
func (c *Client) readPump() {
	defer func() {
		c.Service.Hub.Unregister(c.SessionID)
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
		c.log.Info("Viewer disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WS read error")
			}
			return
		}
		c.dispatch(cmd)
	}
}

func (c *Client) dispatch(cmd api.ClientCommand) {
	action := domain.ParseAction(cmd.Action)
	handler, ok := commands[action]
	if !ok {
		c.enqueue(api.ServerResponse{Type: api.TypeError, Error: "unknown action " + cmd.Action})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := handler(ctx, c, cmd.Payload); err != nil {
		c.log.WithError(err).WithField("action", action.String()).Info("Command rejected")
		c.enqueue(api.ServerResponse{Type: api.TypeError, Error: err.Error()})
	}
}

// writePump sends queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.write(message); err != nil {
				c.log.WithError(err).Debug("write message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

// write sends snapshots as binary frames to binary viewers and everything
// else as JSON text.
func (c *Client) write(msg api.ServerResponse) error {
	if !c.Binary || msg.Snapshot == nil {
		return c.Conn.WriteJSON(msg)
	}
	data, err := api.EncodeFrame(api.FrameFromSnapshot(msg.Snapshot))
	if err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.BinaryMessage, data)
}
