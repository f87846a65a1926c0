// Package api serves the streamswap query surface over HTTP as JSON.
// Every route is read-only; state changes go through the engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// Querier is the read side of the engine.
type Querier interface {
	Params(ctx context.Context) (*factory.Params, error)
	Stream(ctx context.Context, streamID uint64) (*stream.Stream, error)
	ListStreams(ctx context.Context, startAfter uint64, limit int) ([]*stream.Stream, error)
	Position(ctx context.Context, streamID uint64, owner string) (*position.Position, error)
	ListPositions(ctx context.Context, streamID uint64, startAfter string, limit int) ([]*position.Position, error)
	AveragePrice(ctx context.Context, streamID uint64) (types.Dec, error)
	LastStreamedPrice(ctx context.Context, streamID uint64) (types.Dec, error)
	Threshold(ctx context.Context, streamID uint64) (types.Amount, error)
	ListTransfers(ctx context.Context, streamID uint64, offset, limit int) ([]*transfer.Transfer, error)
}

var _ Querier = (*streamswap.Engine)(nil)

var errBadParam = errors.New("api: invalid numeric parameter")

// Handler routes query requests to a Querier.
type Handler struct {
	q      Querier
	logger *slog.Logger
	router chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for internal errors.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New builds a Handler. basePath prefixes every route; empty mounts at "/".
func New(q Querier, basePath string, opts ...Option) *Handler {
	h := &Handler{
		q:      q,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if basePath == "" {
		basePath = "/"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Route(basePath, func(r chi.Router) {
		r.Get("/params", h.getParams)
		r.Get("/streams", h.listStreams)
		r.Route("/streams/{streamID}", func(r chi.Router) {
			r.Get("/", h.getStream)
			r.Get("/positions", h.listPositions)
			r.Get("/positions/{owner}", h.getPosition)
			r.Get("/average-price", h.averagePrice)
			r.Get("/last-streamed-price", h.lastStreamedPrice)
			r.Get("/threshold", h.threshold)
			r.Get("/transfers", h.listTransfers)
		})
	})
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ──────────────────────────────────────────────────
// Routes
// ──────────────────────────────────────────────────

func (h *Handler) getParams(w http.ResponseWriter, r *http.Request) {
	p, err := h.q.Params(r.Context())
	h.respond(w, p, err)
}

func (h *Handler) listStreams(w http.ResponseWriter, r *http.Request) {
	startAfter, err := queryUint(r, "start_after")
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	streams, err := h.q.ListStreams(r.Context(), startAfter, queryInt(r, "limit"))
	h.respond(w, map[string]any{"streams": streams}, err)
}

func (h *Handler) getStream(w http.ResponseWriter, r *http.Request) {
	streamID, err := pathStreamID(r)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	s, err := h.q.Stream(r.Context(), streamID)
	h.respond(w, s, err)
}

func (h *Handler) listPositions(w http.ResponseWriter, r *http.Request) {
	streamID, err := pathStreamID(r)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	positions, err := h.q.ListPositions(r.Context(), streamID, r.URL.Query().Get("start_after"), queryInt(r, "limit"))
	h.respond(w, map[string]any{"positions": positions}, err)
}

func (h *Handler) getPosition(w http.ResponseWriter, r *http.Request) {
	streamID, err := pathStreamID(r)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	p, err := h.q.Position(r.Context(), streamID, chi.URLParam(r, "owner"))
	h.respond(w, p, err)
}

func (h *Handler) averagePrice(w http.ResponseWriter, r *http.Request) {
	streamID, err := pathStreamID(r)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	price, err := h.q.AveragePrice(r.Context(), streamID)
	h.respond(w, map[string]any{"average_price": price}, err)
}

func (h *Handler) lastStreamedPrice(w http.ResponseWriter, r *http.Request) {
	streamID, err := pathStreamID(r)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	price, err := h.q.LastStreamedPrice(r.Context(), streamID)
	h.respond(w, map[string]any{"current_streamed_price": price}, err)
}

func (h *Handler) threshold(w http.ResponseWriter, r *http.Request) {
	streamID, err := pathStreamID(r)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	t, err := h.q.Threshold(r.Context(), streamID)
	h.respond(w, map[string]any{"threshold": t}, err)
}

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	streamID, err := pathStreamID(r)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	ts, err := h.q.ListTransfers(r.Context(), streamID, queryInt(r, "offset"), queryInt(r, "limit"))
	h.respond(w, map[string]any{"transfers": ts}, err)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

type errorBody struct {
	Error string          `json:"error"`
	Kind  streamswap.Kind `json:"kind,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("api: query failed", "error", err)
		}
		writeJSON(w, status, errorBody{Error: err.Error(), Kind: streamswap.KindOf(err)})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func statusFor(err error) int {
	if errors.Is(err, errBadParam) {
		return http.StatusBadRequest
	}
	switch streamswap.KindOf(err) {
	case streamswap.KindNotFound:
		return http.StatusNotFound
	case streamswap.KindValidation:
		return http.StatusBadRequest
	case streamswap.KindAuthorization:
		return http.StatusForbidden
	case streamswap.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // the client went away
}

func pathStreamID(r *http.Request) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, "streamID"), 10, 64)
	if err != nil || v == 0 {
		return 0, errBadParam
	}
	return v, nil
}

func queryUint(r *http.Request, key string) (uint64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errBadParam
	}
	return v, nil
}

// queryInt reads a non-negative integer parameter. Malformed values fall
// back to zero, which the engine treats as its default.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
