package chat

import (
	"sync"
	"time"

	"github.com/devmesh/chat/data/events"
	"github.com/devmesh/chat/data/model"
	"github.com/devmesh/chat/internal/global"
	"github.com/fasthttp/router"
	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const defaultWriteBuffer = 64

// New runs the chat event channel until the global context closes. Every
// websocket connection gets an opaque handle; inbound events are decoded and
// fed to the delivery engine in arrival order, outbound dispatches arrive over
// the events subscription and are written to whichever handles this process
// owns.
func New(gctx global.Context) error {
	pingInterval := time.Duration(gctx.Config().Chat.PingIntervalSeconds) * time.Second
	if pingInterval == 0 {
		pingInterval = time.Second * 30
	}

	writeBuffer := gctx.Config().Chat.WriteBufferSize
	if writeBuffer == 0 {
		writeBuffer = defaultWriteBuffer
	}

	s := &Server{
		gctx:         gctx,
		conns:        map[string]*Conn{},
		pingInterval: pingInterval,
		writeBuffer:  writeBuffer,
	}

	s.upgrader = websocket.FastHTTPUpgrader{
		CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
			whitelist := gctx.Config().Chat.OriginWhitelist
			if len(whitelist) == 0 {
				return true
			}

			origin := string(ctx.Request.Header.Peek("Origin"))
			for _, allowed := range whitelist {
				if origin == allowed {
					return true
				}
			}

			return false
		},
	}

	r := router.New()
	r.GET("/", s.onUpgrade)

	srv := &fasthttp.Server{
		Handler:          r.Handler,
		CloseOnShutdown:  true,
		DisableKeepalive: false,
	}

	go s.dispatchLoop()

	go func() {
		<-gctx.Done()

		_ = srv.Shutdown()
	}()

	zap.S().Infow("Chat enabled",
		"bind", gctx.Config().Chat.Bind,
	)

	return srv.ListenAndServe(gctx.Config().Chat.Bind)
}

type Server struct {
	gctx     global.Context
	upgrader websocket.FastHTTPUpgrader

	mtx   sync.Mutex
	conns map[string]*Conn

	pingInterval time.Duration
	writeBuffer  int
}

func (s *Server) onUpgrade(ctx *fasthttp.RequestCtx) {
	if limit := s.gctx.Config().Chat.ConnLimit; limit > 0 {
		s.mtx.Lock()
		n := len(s.conns)
		s.mtx.Unlock()

		if n >= limit {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)

			return
		}
	}

	err := s.upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
		s.handle(ws)
	})
	if err != nil {
		zap.S().Warnw("failed to upgrade connection",
			"error", err,
		)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
	}
}

func (s *Server) handle(ws *websocket.Conn) {
	conn := newConn(ws, s.writeBuffer)

	s.mtx.Lock()
	s.conns[conn.ID] = conn
	s.mtx.Unlock()

	s.gctx.Inst().Prometheus.ConnectionsOpen().Inc()

	defer func() {
		s.mtx.Lock()
		delete(s.conns, conn.ID)
		s.mtx.Unlock()

		s.gctx.Inst().Prometheus.ConnectionsOpen().Dec()

		conn.close()

		// The disconnect signal carries no payload; the engine resolves the
		// user through its registry.
		s.gctx.Inst().Delivery.Disconnect(s.gctx, conn.ID)
	}()

	go conn.writePump(s.pingInterval)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		msg, err := events.Unmarshal(data)
		if err != nil {
			zap.S().Warnw("malformed frame",
				"error", err,
				"conn", conn.ID,
			)

			continue
		}

		s.dispatchInbound(conn, msg)
	}
}

// dispatchInbound routes one decoded client event into the engine. Events on
// a single connection are handled synchronously so they apply in arrival
// order; concurrency only exists across connections.
func (s *Server) dispatchInbound(conn *Conn, msg events.Message[events.RawData]) {
	switch msg.Op {
	case events.OpcodeUserOnline:
		p, err := events.ConvertMessage[events.UserOnlinePayload](msg)
		if err != nil {
			zap.S().Warnw("bad userOnline payload",
				"error", err,
				"conn", conn.ID,
			)

			return
		}

		s.gctx.Inst().Delivery.Connect(s.gctx, conn.ID, string(p.Data))
	case events.OpcodeSendMessage:
		p, err := events.ConvertMessage[model.Message](msg)
		if err != nil {
			zap.S().Warnw("bad send_message payload",
				"error", err,
				"conn", conn.ID,
			)

			return
		}

		s.gctx.Inst().Delivery.SendMessage(s.gctx, p.Data)
	case events.OpcodeTyping:
		p, err := events.ConvertMessage[events.TypingPayload](msg)
		if err != nil {
			zap.S().Warnw("bad typing payload",
				"error", err,
				"conn", conn.ID,
			)

			return
		}

		s.gctx.Inst().Delivery.Typing(s.gctx, p.Data)
	case events.OpcodeGetOnlineUsers:
		s.gctx.Inst().Delivery.OnlineUsers(s.gctx, conn.ID)
	default:
		zap.S().Warnw("unknown op",
			"op", msg.Op,
			"conn", conn.ID,
		)
	}
}

// dispatchLoop feeds cross-process dispatches to locally held connections.
func (s *Server) dispatchLoop() {
	ch := s.gctx.Inst().Events.Subscribe(s.gctx)

	for d := range ch {
		b, err := d.Msg.Marshal()
		if err != nil {
			zap.S().Errorw("failed to encode dispatch",
				"error", err,
				"op", d.Msg.Op,
			)

			continue
		}

		if d.Conn == "" {
			s.mtx.Lock()
			for _, conn := range s.conns {
				conn.send(b)
			}
			s.mtx.Unlock()

			continue
		}

		s.mtx.Lock()
		conn, ok := s.conns[d.Conn]
		s.mtx.Unlock()

		// Another process owns this handle, or it already went away.
		if !ok {
			continue
		}

		conn.send(b)
	}
}
