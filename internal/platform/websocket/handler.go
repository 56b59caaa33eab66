package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/platform/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// TokenParser resolves the token query parameter to a staff identity.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// Handler upgrades GET /ws and serves GET /ws/stats.
type Handler struct {
	hub      *Hub
	tokens   TokenParser
	logger   zerolog.Logger
	upgrader gorillawebsocket.Upgrader
}

// NewHandler builds a handler. allowedOrigins limits browser origins; an
// empty list accepts any origin.
func NewHandler(hub *Hub, tokens TokenParser, allowedOrigins []string, logger zerolog.Logger) *Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		hub:    hub,
		tokens: tokens,
		logger: logger,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// RegisterRoutes mounts the channel on g. statsMW guards the stats endpoint.
func (h *Handler) RegisterRoutes(g *echo.Group, statsMW ...echo.MiddlewareFunc) {
	g.GET("/ws", h.HandleConnect)
	g.GET("/ws/stats", h.HandleStats, statsMW...)
}

// HandleConnect authenticates with the token query parameter. The upgrade
// always completes so that a rejected client receives close code 1008 with
// a reason instead of a bare HTTP error.
func (h *Handler) HandleConnect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("live channel upgrade failed")
		return nil
	}

	token := c.QueryParam("token")
	if token == "" {
		h.reject(ws, "Token no proporcionado")
		return nil
	}
	id, err := h.tokens.Parse(token)
	if err != nil {
		h.logger.Debug().Err(err).Msg("live channel token rejected")
		h.reject(ws, "Token inválido")
		return nil
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: id.ID,
		Role:   id.Role,
		Topics: []string{UserTopic(id.ID), RoleTopic(id.Role)},
		Send:   make(chan []byte, sendBuffer),
	}
	h.hub.Register(client)

	welcome, _ := json.Marshal(struct {
		Message
		UserID string `json:"user_id"`
	}{
		Message: Message{
			Type:      TypeConnectionEstablished,
			Message:   fmt.Sprintf("Conectado exitosamente como %s", id.Role),
			Timestamp: time.Now().UTC(),
		},
		UserID: id.ID,
	})
	client.Send <- welcome

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.hub.Stats())
}

func (h *Handler) reject(ws *gorillawebsocket.Conn, reason string) {
	msg := gorillawebsocket.FormatCloseMessage(gorillawebsocket.ClosePolicyViolation, reason)
	_ = ws.WriteControl(gorillawebsocket.CloseMessage, msg, time.Now().Add(writeWait))
	ws.Close()
}

// readPump owns unregistering: once it returns, the client's Send channel
// is closed and writePump drains out.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if gorillawebsocket.IsUnexpectedCloseError(err, gorillawebsocket.CloseGoingAway, gorillawebsocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("client_id", client.ID).Msg("live channel read")
			}
			return
		}

		reply, err := json.Marshal(Message{
			Type:      TypeEcho,
			Message:   fmt.Sprintf("Mensaje recibido: %s", data),
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			continue
		}
		select {
		case client.Send <- reply:
		default:
		}
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
