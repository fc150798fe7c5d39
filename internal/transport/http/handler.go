package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// HostResolver maps a bearer token to the host identity.
type HostResolver interface {
	ResolveHost(ctx context.Context, token string) (string, error)
}

// Handler exposes the session use cases as REST routes under /v1.
type Handler struct {
	service *app.SessionService
	hosts   HostResolver
	logger  *slog.Logger
}

func NewHandler(service *app.SessionService, hosts HostResolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, hosts: hosts, logger: logger}
}

// Register mounts the REST routes on mux, wrapped with mws.
func (h *Handler) Register(mux *http.ServeMux, mws ...Middleware) {
	routes := map[string]http.HandlerFunc{
		"POST /v1/quizzes/{quizId}/sessions":                       h.host(h.startSession),
		"GET /v1/quizzes/{quizId}/sessions":                        h.host(h.listSessions),
		"GET /v1/quizzes/{quizId}/sessions/{sessionId}":            h.host(h.sessionStatus),
		"PUT /v1/quizzes/{quizId}/sessions/{sessionId}":            h.host(h.applyAction),
		"GET /v1/sessions/{sessionId}/results":                     h.host(h.finalResults),
		"GET /v1/sessions/{sessionId}/results.csv":                 h.host(h.finalResultsCSV),
		"POST /v1/sessions/{sessionId}/players":                    h.joinSession,
		"GET /v1/players/{playerId}/status":                        h.playerStatus,
		"GET /v1/players/{playerId}/questions/{position}":          h.currentQuestion,
		"POST /v1/players/{playerId}/questions/{position}/answers": h.submitAnswer,
		"GET /v1/players/{playerId}/questions/{position}/results":  h.questionResult,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, Chain(fn, mws...))
	}
}

type hostHandlerFunc func(w http.ResponseWriter, r *http.Request, host string)

// host resolves the bearer token before calling next.
func (h *Handler) host(next hostHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, r, h.logger, domain.ErrInvalidHostToken)
			return
		}
		host, err := h.hosts.ResolveHost(r.Context(), token)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		next(w, r, host)
	}
}

type startSessionRequest struct {
	AutoStart int `json:"autoStart"`
}

type startSessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, host string) {
	var req startSessionRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := h.service.StartSession(r.Context(), r.PathValue("quizId"), host, req.AutoStart)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{SessionID: id})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request, host string) {
	list, err := h.service.ListSessions(r.Context(), r.PathValue("quizId"), host)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request, host string) {
	status, err := h.service.GetSessionStatus(r.Context(), r.PathValue("sessionId"), host)
	if err == nil && status.QuizID != r.PathValue("quizId") {
		err = domain.ErrSessionNotFound
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type actionRequest struct {
	Action string `json:"action"`
}

func (h *Handler) applyAction(w http.ResponseWriter, r *http.Request, host string) {
	var req actionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status, err := h.service.GetSessionStatus(r.Context(), r.PathValue("sessionId"), host)
	if err == nil && status.QuizID != r.PathValue("quizId") {
		err = domain.ErrSessionNotFound
	}
	if err == nil {
		err = h.service.ApplyAction(r.Context(), r.PathValue("sessionId"), host, action)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) finalResults(w http.ResponseWriter, r *http.Request, host string) {
	result, err := h.service.GetFinalResults(r.Context(), host, r.PathValue("sessionId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) finalResultsCSV(w http.ResponseWriter, r *http.Request, host string) {
	sessionID := r.PathValue("sessionId")
	rows, err := h.service.GetFinalResultsCSV(r.Context(), host, sessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, sessionID))
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		h.logger.ErrorContext(r.Context(), "write csv", slog.String("session_id", sessionID), slog.Any("error", err))
	}
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	PlayerID string `json:"playerId"`
}

func (h *Handler) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	playerID, err := h.service.JoinSession(r.Context(), r.PathValue("sessionId"), req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{PlayerID: playerID})
}

func (h *Handler) playerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetPlayerStatus(r.Context(), r.PathValue("playerId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) currentQuestion(w http.ResponseWriter, r *http.Request) {
	pos, err := position(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view, err := h.service.GetCurrentQuestion(r.Context(), r.PathValue("playerId"), pos)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type answerRequest struct {
	AnswerIDs []string `json:"answerIds"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	pos, err := position(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req answerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.service.SubmitAnswer(r.Context(), r.PathValue("playerId"), pos, req.AnswerIDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) questionResult(w http.ResponseWriter, r *http.Request) {
	pos, err := position(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.service.GetQuestionResult(r.Context(), r.PathValue("playerId"), pos)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

var errBadRequest = fmt.Errorf("malformed request: %w", domain.ErrValidation)

func position(r *http.Request) (int, error) {
	pos, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		return 0, fmt.Errorf("question position: %w", errBadRequest)
	}
	return pos, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", errBadRequest)
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decode(r, v)
}
