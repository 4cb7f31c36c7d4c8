package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"triage-assistant/internal/domain"
	"triage-assistant/internal/metrics"
)

const (
	maxBodyBytes     = 64 << 10
	maxSessionKeyLen = 128
)

type TriageService interface {
	Submit(ctx context.Context, sessionKey, text string) domain.Response
	Reset(ctx context.Context, sessionKey string) (domain.Response, error)
	History(ctx context.Context, sessionKey string) ([]domain.Turn, error)
	Triage(text string) domain.TriageResult
}

type Catalog interface {
	Lookup(id string) (domain.SymptomEntry, bool)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RateLimitRPS   int
	RateLimitBurst int
}

type Handler struct {
	svc     TriageService
	catalog Catalog
	store   Pinger
}

func NewHandler(svc TriageService, catalog Catalog, store Pinger) *Handler {
	return &Handler{svc: svc, catalog: catalog, store: store}
}

// NewRouter mounts the API with the shared middleware stack.
func NewRouter(h *Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			r.Use(newIPRateLimiter(opts.RateLimitRPS, max(opts.RateLimitBurst, 1)).Middleware)
		}
		r.Use(middleware.RequestSize(maxBodyBytes))
		r.Mount("/sessions", h.Routes())
		r.Post("/triage", h.DryRun)
		r.Get("/symptoms/{id}", h.Symptom)
	})

	return r
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)
	r.Route("/{key}", func(r chi.Router) {
		r.Post("/messages", h.SubmitMessage)
		r.Post("/reset", h.ResetConversation)
		r.Get("/history", h.History)
	})

	return r
}

type submitRequest struct {
	Text string `json:"text"`
}

type matchResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Tier    domain.Tier `json:"tier"`
	Matched []string    `json:"matched"`
}

type triageResponse struct {
	Tier            domain.Tier     `json:"tier"`
	Level           domain.Level    `json:"level"`
	IsEmergency     bool            `json:"is_emergency"`
	EmergencyGroups []string        `json:"emergency_groups,omitempty"`
	Matches         []matchResponse `json:"matches"`
}

type historyResponse struct {
	SessionKey string        `json:"session_key"`
	Turns      []domain.Turn `json:"turns"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"session_key": uuid.NewString()})
}

func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError(err))
		return
	}

	writeJSON(w, http.StatusOK, h.svc.Submit(r.Context(), key, req.Text))
}

func (h *Handler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.svc.Reset(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}

	turns, err := h.svc.History(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionKey: key, Turns: turns})
}

// DryRun classifies a text without storing it or calling the provider.
func (h *Handler) DryRun(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError(err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, badRequest("text must not be empty", nil))
		return
	}

	res := h.svc.Triage(req.Text)
	out := triageResponse{
		Tier:            res.Tier,
		Level:           res.Tier.Level(),
		IsEmergency:     res.IsEmergency,
		EmergencyGroups: res.EmergencyGroups,
		Matches:         make([]matchResponse, 0, len(res.Matches)),
	}
	for _, m := range res.Matches {
		out.Matches = append(out.Matches, matchResponse{
			ID:      m.Entry.ID,
			Name:    m.Entry.DisplayName,
			Tier:    m.Entry.Tier,
			Matched: m.Matched,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Symptom(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeError(w, notFound("symptom not found"))
		return
	}
	entry, ok := h.catalog.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, notFound("symptom not found"))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Printf("readiness: store ping: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  "unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "ok"})
}

func sessionKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if !validSessionKey(key) {
		return "", badRequest("session key must be 1-128 characters of letters, digits, '-' or '_'", ErrInvalidSessionKey)
	}
	return key, nil
}

func validSessionKey(key string) bool {
	if key == "" || len(key) > maxSessionKeyLen {
		return false
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func decodeError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return tooLarge()
	}
	return badRequest("invalid request body", err)
}
