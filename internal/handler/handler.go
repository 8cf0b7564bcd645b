package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/enozdev/storytelling-goesan-sub000/internal/authoring"
	appI18n "github.com/enozdev/storytelling-goesan-sub000/internal/i18n"
	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
	"github.com/enozdev/storytelling-goesan-sub000/internal/qr"
	"github.com/enozdev/storytelling-goesan-sub000/internal/scoreboard"
)

// TeamResolver maps team ids to display names for the leaderboard.
type TeamResolver interface {
	ResolveTeamNames(ctx context.Context, teamIDs []string) (map[string]string, error)
}

// Handler adapts HTTP requests to the authoring session and scoreboard.
// The session itself is single-caller; the handler serializes access to it.
type Handler struct {
	mu       sync.Mutex
	session  *authoring.Session
	recorder scoreboard.Recorder
	teams    TeamResolver
}

// New creates a new Handler.
func New(session *authoring.Session, recorder scoreboard.Recorder, teams TeamResolver) *Handler {
	return &Handler{session: session, recorder: recorder, teams: teams}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(api chi.Router) {
		api.Get("/session", h.handleSnapshot)
		api.Post("/session/questions", h.handleGenerate)
		api.Post("/session/questions/{index}/reveal", h.handleReveal)
		api.Post("/session/questions/{index}/answer", h.handleAnswer)
		api.Post("/session/questions/{index}/choose", h.handleChoose)
		api.Post("/session/questions/{index}/regenerate", h.handleRegenerate)
		api.Post("/session/pop", h.handlePop)
		api.Post("/session/reset", h.handleReset)
		api.Post("/session/save", h.handleSave)

		api.Post("/scans", h.handleScan)
		api.Post("/attempts", h.handleAttempt)
		api.Get("/leaderboard", h.handleLeaderboard)
	})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	snap := h.session.Snapshot()
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

type generateRequest struct {
	Topic      string           `json:"topic"`
	Difficulty model.Difficulty `json:"difficulty"`
}

type generateResponse struct {
	Index int                 `json:"index"`
	Item  model.AuthoringItem `json:"item"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !readJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	index, err := h.session.RequestGeneration(r.Context(), req.Topic, req.Difficulty)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, generateResponse{
		Index: index,
		Item:  h.session.Snapshot().Items[index],
	})
}

func (h *Handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Reveal(index); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot().Items[index])
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if !readJSON(w, r, &req) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.SubmitAnswer(index, req.Answer); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot().Items[index])
}

func (h *Handler) handleChoose(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Choose(r.Context(), index); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot().Items[index])
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Regenerate(r.Context(), index); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot().Items[index])
}

func (h *Handler) handlePop(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	removed := h.session.Pop()
	snap := h.session.Snapshot()
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "session": snap})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.session.Reset()
	snap := h.session.Snapshot()
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Save(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

type scanRequest struct {
	TeamID string `json:"teamId"`
	Token  string `json:"token"`
}

type scanResponse struct {
	Recorded bool   `json:"recorded"`
	MarkerID string `json:"markerId,omitempty"`
	Target   string `json:"target,omitempty"`
	Message  string `json:"message"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !readJSON(w, r, &req) {
		return
	}

	token := qr.Classify(req.Token)
	switch token.Kind {
	case qr.KindNavigation:
		writeJSON(w, http.StatusOK, scanResponse{Target: token.Target})
	case qr.KindMarker:
		if err := h.recorder.RecordScan(r.Context(), req.TeamID, token.MarkerID, time.Now()); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, scanResponse{
			Recorded: true,
			MarkerID: token.MarkerID,
			Message:  appI18n.T(r.Context(), "ScanRecorded"),
		})
	default:
		writeJSON(w, http.StatusUnprocessableEntity, scanResponse{
			Message: appI18n.T(r.Context(), "UnknownToken"),
		})
	}
}

type attemptRequest struct {
	TeamID     string `json:"teamId"`
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}

func (h *Handler) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.recorder.RecordAttempt(r.Context(), req.TeamID, req.QuestionID, req.Correct, time.Now()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.recorder.CountsByTeam(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	teamIDs := make([]string, 0, len(counts))
	for teamID := range counts {
		teamIDs = append(teamIDs, teamID)
	}
	names, err := h.teams.ResolveTeamNames(r.Context(), teamIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scoreboard.Rank(counts, names))
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps core errors to HTTP statuses with localized messages.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msgID := "ErrInternal"

	switch {
	case errors.Is(err, model.ErrEmptyTopic):
		status, msgID = http.StatusBadRequest, "ErrEmptyTopic"
	case errors.Is(err, model.ErrInvalidDifficulty):
		status, msgID = http.StatusBadRequest, "ErrInvalidDifficulty"
	case errors.Is(err, model.ErrCapacityExhausted):
		status, msgID = http.StatusConflict, "ErrCapacityExhausted"
	case errors.Is(err, model.ErrInvalidIndex):
		status, msgID = http.StatusNotFound, "ErrInvalidIndex"
	case errors.Is(err, model.ErrNotRevealed):
		status, msgID = http.StatusConflict, "ErrNotRevealed"
	case errors.Is(err, model.ErrIncompleteSet):
		status, msgID = http.StatusConflict, "ErrIncompleteSet"
	case errors.Is(err, model.ErrEmptyTeam):
		status, msgID = http.StatusBadRequest, "ErrEmptyTeam"
	case errors.Is(err, model.ErrServiceUnavailable), errors.Is(err, model.ErrMalformedResponse):
		status, msgID = http.StatusBadGateway, "ErrGenerationFailed"
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		msgID = "ErrPersistFailed"
	}

	writeJSON(w, status, errorResponse{
		Error:   err.Error(),
		Message: appI18n.T(r.Context(), msgID),
	})
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid item index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
