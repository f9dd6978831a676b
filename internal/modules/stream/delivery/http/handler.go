package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	feedDto "anoa.com/notifiq/internal/modules/feed/dto"
	stream "anoa.com/notifiq/internal/modules/stream/service"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/metrics"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type StreamHandler struct {
	streamer *stream.Streamer
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewStreamHandler accepts upgrades from the listed origins. An empty list
// allows any origin.
func NewStreamHandler(streamer *stream.Streamer, allowedOrigins []string) *StreamHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &StreamHandler{
		streamer: streamer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		log: logger.WithModule("stream"),
	}
}

func (h *StreamHandler) HandleWebSocket(c *gin.Context) {
	user, err := response.GetUser(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query feedDto.FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	commands := make(chan stream.Command)
	go h.readCommands(ctx, cancel, conn, commands)
	go h.ping(ctx, conn)

	err = h.streamer.Run(ctx, user, stream.ViewFromQuery(query), commands, func(f stream.Frame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.log.Info("stream closed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

// readCommands owns the read side of conn. It cancels the session when the
// client goes away.
func (h *StreamHandler) readCommands(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, commands chan<- stream.Command) {
	defer cancel()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var cmd stream.Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.log.Debug("ignoring malformed stream command", zap.Error(err))
			continue
		}

		select {
		case commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (h *StreamHandler) ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
