package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/teogomes/pokerPlanning/internal/app"
	"github.com/teogomes/pokerPlanning/internal/config"
	"github.com/teogomes/pokerPlanning/internal/core"
	"github.com/teogomes/pokerPlanning/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Coord    *app.Coordinator
	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewController(coord *app.Coordinator, cfg *config.Config) *Controller {
	ctl := &Controller{Coord: coord, cfg: cfg}
	ctl.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(cfg.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return ctl
}

// originAllowed enforces the fixed allow-list. A request without an Origin
// header (non-browser client, same-origin) is let through; "*" in the list
// disables the check.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and starts the connection's pumps.
// Every websocket gets a fresh connection id; the durable identity arrives
// later inside the join payload.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	cid := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("new WS connection")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	// Cookie-issued token, used when a join payload carries no browserId.
	fallback := domain.Token(c.GetString("client_token"))

	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Registry.Bind(cid, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cid, fallback, conn)
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
