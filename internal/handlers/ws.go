package handlers

import (
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stefan-vatov/nightwatch-deck/internal/config"
	"github.com/stefan-vatov/nightwatch-deck/internal/security"
	"github.com/stefan-vatov/nightwatch-deck/internal/services"
)

// WSHandler terminates the room websocket path and routes each upgraded
// connection to its room actor.
type WSHandler struct {
	manager *services.Manager
	origins *security.OriginValidator
	log     *logrus.Entry
}

func NewWSHandler(manager *services.Manager, origins *security.OriginValidator) *WSHandler {
	return &WSHandler{
		manager: manager,
		origins: origins,
		log:     logrus.WithField("component", "ws"),
	}
}

// HandleWebSocket serves /ws/{room}: GET only (405 otherwise), a websocket
// upgrade is required (426), and the first path segment after the prefix is
// the raw room identifier (400 when empty). The identifier is trimmed and
// uppercased before routing, so the same room name always reaches the same
// actor.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	if !strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		c.String(http.StatusUpgradeRequired, "Expected WebSocket Upgrade")
		return
	}

	raw := strings.TrimPrefix(c.Param("room"), "/")
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	roomID := services.NormalizeRoomID(raw)
	if roomID == "" {
		c.String(http.StatusBadRequest, "Room id required")
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.origins.AcceptOptions())
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}
	conn.SetReadLimit(config.MaxMessageBytes)

	client, err := h.manager.Attach(roomID, conn)
	if err != nil {
		h.log.WithError(err).WithField("room", roomID).Warn("attach refused")
		_ = conn.Close(websocket.StatusTryAgainLater, "Too many rooms")
		return
	}
	client.Start()
}
