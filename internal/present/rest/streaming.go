package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type streamRequest struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// handleStreaming relays redis pub/sub events to a websocket client. The
// client picks channels with a listen frame; until then it receives the
// public note feed.
func (h *Handler) handleStreaming(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("module", "streaming"),
		)
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()

	sub := h.signal.Subscribe(ctx, "note:created", "note:updated")
	defer sub.Close()

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req streamRequest
			if err := ws.ReadJSON(&req); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(ctx, "websocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "streaming"),
						)
					}
				} else {
					slog.DebugContext(ctx, "websocket read failed",
						slog.String("error", err.Error()),
						slog.String("module", "streaming"),
					)
				}
				return
			}

			switch req.Type {
			case "listen":
				channels := sanitizeChannels(req.Channels)
				if len(channels) == 0 {
					continue
				}
				if err := sub.Subscribe(ctx, channels...); err != nil {
					slog.ErrorContext(ctx, "channel subscribe failed",
						slog.String("error", err.Error()),
						slog.String("module", "streaming"),
					)
				}
			case "h": // heartbeat
			default:
				slog.InfoContext(ctx, "unknown stream request type",
					slog.String("type", req.Type),
					slog.String("module", "streaming"),
				)
			}
		}
	}()

	events := sub.Channel()
	for {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			if err := ws.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				slog.DebugContext(ctx, "websocket write failed",
					slog.String("error", err.Error()),
					slog.String("module", "streaming"),
				)
				return nil
			}
		}
	}
}

// sanitizeChannels keeps the subscription surface to the known prefixes.
func sanitizeChannels(requested []string) []string {
	var channels []string
	for _, ch := range requested {
		switch {
		case ch == "note:created", ch == "note:updated":
			channels = append(channels, ch)
		case strings.HasPrefix(ch, "antenna:"), strings.HasPrefix(ch, "user:"):
			channels = append(channels, ch)
		}
	}
	return channels
}
