package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/dkeye/Nearby/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit  int64
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	return o
}

type SignalWSController struct {
	Orch *orch.Orchestrator
	opts Options
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	return &SignalWSController{Orch: o, opts: opts.withDefaults()}
}

// WsSignalConn is the bounded outbound queue in front of one websocket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. The write pump flushes what is queued and
// then closes the socket.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	sid := ctl.Orch.OnSessionOpened(conn, cancel)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client", c.GetString("client_token")).
		Str("remote", c.ClientIP()).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
