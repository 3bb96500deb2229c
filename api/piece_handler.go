package api

import (
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
	"github.com/GoCodeAlone/workflow-plugin-soap/schema"
)

// PieceHandler serves piece metadata, property resolution and action runs.
type PieceHandler struct {
	engine *piece.Engine
	logger *slog.Logger
}

// NewPieceHandler creates a new PieceHandler.
func NewPieceHandler(engine *piece.Engine, logger *slog.Logger) *PieceHandler {
	return &PieceHandler{engine: engine, logger: logger}
}

// List handles GET /api/v1/pieces.
func (h *PieceHandler) List(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.engine.Registry().List())
}

// pieceDetail is a piece with the builder field schema of each action.
type pieceDetail struct {
	*piece.Piece
	Fields map[string][]schema.ConfigFieldDef `json:"fields"`
}

// Get handles GET /api/v1/pieces/{piece}.
func (h *PieceHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.engine.Registry().Get(r.PathValue("piece"))
	if !ok {
		WriteError(w, http.StatusNotFound, "piece not found")
		return
	}
	detail := pieceDetail{Piece: p, Fields: make(map[string][]schema.ConfigFieldDef, len(p.Actions))}
	for _, a := range p.Actions {
		detail.Fields[a.Name] = a.Fields()
	}
	WriteJSON(w, http.StatusOK, detail)
}

type resolveRequest struct {
	SessionID string          `json:"sessionId"`
	Values    piece.PropsValue `json:"values"`
	Auth      piece.AuthValue  `json:"auth"`
}

// Resolve handles POST /api/v1/pieces/{piece}/actions/{action}/props/{prop}/resolve.
func (h *PieceHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.engine.ResolveProperty(r.Context(), piece.ResolveRequest{
		Piece:     r.PathValue("piece"),
		Action:    r.PathValue("action"),
		Property:  r.PathValue("prop"),
		SessionID: req.SessionID,
		Values:    req.Values,
		Auth:      req.Auth,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type runRequest struct {
	Props piece.PropsValue `json:"props"`
	Auth  piece.AuthValue  `json:"auth"`
}

// Run handles POST /api/v1/pieces/{piece}/actions/{action}/run.
func (h *PieceHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := h.engine.Run(r.Context(), piece.RunRequest{
		Piece:  r.PathValue("piece"),
		Action: r.PathValue("action"),
		Props:  req.Props,
		Auth:   req.Auth,
	})
	if err != nil {
		h.logger.Info("Action run failed",
			"piece", r.PathValue("piece"),
			"action", r.PathValue("action"),
			"error", err,
		)
		writeFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}
