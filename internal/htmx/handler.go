package htmx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gomoku/internal/broadcast"
	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"

	"github.com/a-h/templ"
	"go.uber.org/zap"
)

// Engine is the part of the game engine the board view needs.
type Engine interface {
	ExecuteAction(ctx context.Context, roomID, playerID string, req models.ActionRequest) (models.Snapshot, error)
	GetState(ctx context.Context, roomID, playerID string) (models.Snapshot, error)
}

// Handler handles HTMX requests with SSE for real-time updates.
type Handler struct {
	engine Engine
	hub    *broadcast.Hub
	logger *zap.Logger
}

// NewHandler creates a new HTMX handler.
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

// RegisterRoutes sets up the HTMX routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /htmx/rooms/{roomID}", h.handleGetRoom)
	mux.HandleFunc("POST /htmx/rooms/{roomID}/move/{x}/{y}", h.handleMove)
	mux.HandleFunc("POST /htmx/rooms/{roomID}/action/{type}", h.handleAction)
	mux.HandleFunc("GET /htmx/sse/{roomID}", h.handleSSE)
}

func getPlayerFromRequest(r *http.Request) string {
	_ = r.ParseForm()
	player := r.FormValue("player")
	if player == "" {
		player = r.URL.Query().Get("player")
	}
	return strings.TrimSpace(player)
}

func (h *Handler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	player := getPlayerFromRequest(r)
	if player == "" {
		h.render(w, r, ErrorStatus("player is required"))
		return
	}
	v, err := h.view(r.Context(), r.PathValue("roomID"), player)
	if err != nil {
		h.render(w, r, ErrorStatus(apperrors.BodyOf(err).Message))
		return
	}
	h.render(w, r, GameWrapper(v))
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errX != nil || errY != nil {
		http.Error(w, "invalid position", http.StatusBadRequest)
		return
	}
	h.submit(w, r, models.ActionRequest{Type: models.ActionMove, Position: &models.Position{X: x, Y: y}})
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	t := models.ActionType(strings.ToUpper(r.PathValue("type")))
	if t == models.ActionMove || !t.Valid() {
		http.Error(w, "unsupported action", http.StatusBadRequest)
		return
	}
	h.submit(w, r, models.ActionRequest{Type: t})
}

// submit runs the action and re-renders the board. Rejections are shown
// inline on top of the current state.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, req models.ActionRequest) {
	roomID := r.PathValue("roomID")
	player := getPlayerFromRequest(r)
	snap, err := h.engine.ExecuteAction(r.Context(), roomID, player, req)
	if err == nil {
		h.render(w, r, GameWrapper(View{RoomID: roomID, Player: player, State: &snap}))
		return
	}

	v, viewErr := h.view(r.Context(), roomID, player)
	if viewErr != nil {
		h.render(w, r, ErrorStatus(apperrors.BodyOf(err).Message))
		return
	}
	v.Notice = apperrors.BodyOf(err).Message
	h.render(w, r, GameWrapper(v))
}

// view loads the player's view of the room. A room whose session does not
// exist yet yields an empty view.
func (h *Handler) view(ctx context.Context, roomID, player string) (View, error) {
	v := View{RoomID: roomID, Player: player}
	snap, err := h.engine.GetState(ctx, roomID, player)
	switch {
	case err == nil:
		v.State = &snap
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return View{}, err
	}
	return v, nil
}

func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if player == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	v, err := h.view(r.Context(), roomID, player)
	if err != nil {
		body := apperrors.BodyOf(err)
		http.Error(w, body.Message, body.Code.HTTPStatus())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan models.Snapshot, 10)
	h.hub.RegisterSSE(roomID, player, ch)
	defer h.hub.UnregisterSSE(roomID, ch)

	h.writeEvent(r.Context(), w, v)
	flusher.Flush()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			h.writeEvent(r.Context(), w, View{RoomID: roomID, Player: player, State: &snap})
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handler) writeEvent(ctx context.Context, w http.ResponseWriter, v View) {
	html := renderToString(ctx, GameContent(v))
	fmt.Fprintf(w, "event: game-update\ndata: %s\n\n", strings.ReplaceAll(html, "\n", ""))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html")
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Debug("render component", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func renderToString(ctx context.Context, component templ.Component) string {
	var buf bytes.Buffer
	_ = component.Render(ctx, &buf)
	return buf.String()
}
