package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gomoku/internal/broadcast"
	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxMessageSize = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Engine is the part of the game engine the socket needs.
type Engine interface {
	ExecuteAction(ctx context.Context, roomID, playerID string, req models.ActionRequest) (models.Snapshot, error)
	GetState(ctx context.Context, roomID, playerID string) (models.Snapshot, error)
}

// Handler handles WebSocket connections for real-time game updates.
type Handler struct {
	engine Engine
	hub    *broadcast.Hub
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(engine Engine, hub *broadcast.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: engine,
		hub:    hub,
		logger: logger,
	}
}

// RegisterRoutes sets up the WebSocket routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/{roomID}", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	playerID := strings.TrimSpace(r.URL.Query().Get("player"))
	if playerID == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	client := broadcast.NewClient(conn, playerID)
	// A room without a session yet reports NOT_FOUND until the first
	// action; the socket still subscribes so it sees that action.
	snap, err := h.engine.GetState(r.Context(), roomID, playerID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		_ = client.WriteJSON(broadcast.ErrorMessage(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, apperrors.BodyOf(err).Message),
			time.Now().Add(time.Second))
		return
	}
	h.hub.RegisterWS(roomID, client)
	defer h.hub.UnregisterWS(roomID, client)
	if err != nil {
		_ = client.WriteJSON(broadcast.ErrorMessage(err))
	} else {
		_ = client.WriteJSON(broadcast.StateMessage(snap))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.String("room_id", roomID), zap.Error(err))
			}
			return
		}
		var req models.ActionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = client.WriteJSON(broadcast.ErrorMessage(
				apperrors.Wrap(apperrors.CodeInvalidGameAction, "malformed action", err)))
			continue
		}
		// Successful actions reach this client through the hub.
		if _, err := h.engine.ExecuteAction(r.Context(), roomID, playerID, req); err != nil {
			_ = client.WriteJSON(broadcast.ErrorMessage(err))
		}
	}
}
