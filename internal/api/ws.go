package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cbag-ai/cbag-web/internal/chat"
	"github.com/cbag-ai/cbag-web/internal/identity"
	"github.com/coder/websocket"
)

// ServeWS upgrades to a WebSocket and streams view updates for the device
// until the client disconnects. The widget uses this to re-render without
// polling — a settlement or a login in another tab shows up everywhere.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "device_id", deviceID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "device_id", deviceID)
		}
	}()

	ctx := r.Context()
	updates, cancel := h.chat.Subscribe(deviceID)
	defer cancel()

	// Initial snapshot so a fresh tab renders immediately.
	if err := writeView(ctx, ws, h.chat.ViewFor(ctx, deviceID)); err != nil {
		slog.Debug("WebSocket initial write failed", "error", err, "device_id", deviceID)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-updates:
			if !ok {
				return
			}
			if err := writeView(ctx, ws, view); err != nil {
				slog.Debug("WebSocket write failed", "error", err, "device_id", deviceID)
				return
			}
		}
	}
}

func writeView(ctx context.Context, ws *websocket.Conn, view chat.View) error {
	b, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, b)
}
