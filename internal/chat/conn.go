package chat

import (
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const writeWait = time.Second * 10

// Conn is one live websocket connection. ID is the opaque handle stored in
// the presence store; it means nothing outside this process's connection map.
type Conn struct {
	ID string

	ws    *websocket.Conn
	queue chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, buffer int) *Conn {
	return &Conn{
		ID:    primitive.NewObjectID().Hex(),
		ws:    ws,
		queue: make(chan []byte, buffer),
		done:  make(chan struct{}),
	}
}

// send enqueues a frame for the write pump. Frames to a dead or drowning
// connection are dropped silently; the presence record will be cleaned up by
// the disconnect path, and store state was already applied by the engine.
func (c *Conn) send(b []byte) {
	select {
	case <-c.done:
	case c.queue <- b:
	default:
		zap.S().Warnw("dropped frame to slow connection",
			"conn", c.ID,
		)
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case b := <-c.queue:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
