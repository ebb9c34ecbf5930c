package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"

	"go.uber.org/zap"
)

// UserHeader carries the caller's player id.
const UserHeader = "X-User-Id"

const maxBodyBytes = 1 << 16

// Engine is the game surface served over HTTP.
type Engine interface {
	ExecuteAction(ctx context.Context, roomID, playerID string, req models.ActionRequest) (models.Snapshot, error)
	GetState(ctx context.Context, roomID, playerID string) (models.Snapshot, error)
	ListHistory(ctx context.Context, roomID string) ([]models.HistoryRecord, error)
	GetHistory(ctx context.Context, roomID string, gameNumber int) (models.HistoryRecord, error)
}

// Handler handles HTTP requests
type Handler struct {
	engine Engine
	logger *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(engine Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, logger: logger}
}

// RegisterRoutes sets up the routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms/{roomID}/action", h.handleAction)
	mux.HandleFunc("GET /api/rooms/{roomID}/state", h.handleState)
	mux.HandleFunc("GET /api/rooms/{roomID}/history", h.handleListHistory)
	mux.HandleFunc("GET /api/rooms/{roomID}/history/{gameNumber}", h.handleGetHistory)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	var req models.ActionRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	snap, err := h.engine.ExecuteAction(r.Context(), r.PathValue("roomID"), userID(r), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.GetState(r.Context(), r.PathValue("roomID"), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.ListHistory(r.Context(), r.PathValue("roomID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	h.respondJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("gameNumber"))
	if err != nil || n <= 0 {
		h.respondError(w, r, apperrors.New(apperrors.CodeInvalidGameAction, "game number must be a positive integer"))
		return
	}
	record, err := h.engine.GetHistory(r.Context(), r.PathValue("roomID"), n)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, record)
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidGameAction, "invalid request body", err)
	}
	return nil
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Debug("write response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	body := apperrors.BodyOf(err)
	if body.Code == apperrors.CodeUnknown {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	h.respondJSON(w, body.Code.HTTPStatus(), body)
}
