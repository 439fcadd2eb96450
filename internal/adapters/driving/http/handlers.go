package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

const readinessTimeout = 3 * time.Second

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the index and every registered dependency
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Index  bool              `json:"index"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ChatRequest is the body of POST /ai/chat
type ChatRequest struct {
	Prompt string `json:"prompt" example:"Что такое капитальный ремонт?"`
}

// ChatResponse wraps the assistant reply. AIResponse is the answer text, or
// an object with a message when the prompt was empty.
type ChatResponse struct {
	AIResponse interface{}       `json:"aiResponse"`
	Language   domain.Language   `json:"language,omitempty"`
	Tier       domain.AnswerTier `json:"tier,omitempty"`
	Sources    []string          `json:"sources,omitempty"`
}

// MessageBody is the object form of aiResponse
type MessageBody struct {
	Message string `json:"message"`
}

// RebuildRequest is the optional body of POST /admin/index/rebuild
type RebuildRequest struct {
	Reason string `json:"reason,omitempty" example:"corpus updated"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Ready once an index is published and every store answers
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Index: s.indexService.Status().Ready}
	ready := resp.Index

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}
	for _, c := range s.checks {
		if err := c.pinger.Ping(ctx); err != nil {
			resp.Checks[c.name] = err.Error()
			ready = false
			continue
		}
		resp.Checks[c.name] = "ok"
	}

	if !ready {
		resp.Status = "not ready"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Assistant endpoints

// handleCategories godoc
// @Summary      List assistant topics
// @Description  Fixed topic tiles shown on the assistant start screen
// @Tags         Assistant
// @Produce      json
// @Success      200  {array}  domain.ServiceCategory
// @Router       /categories [get]
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ServiceCategories())
}

// handleChat godoc
// @Summary      Ask the assistant
// @Description  Answers a housing or utilities question in Russian or Kazakh
// @Tags         Assistant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ChatRequest  true  "Question"
// @Success      200      {object}  ChatResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Router       /ai/chat [post]
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer := s.assistant.Answer(r.Context(), req.Prompt, authCtx.UserID)
	if answer.Tier == domain.AnswerTierCanned && answer.Text == domain.EmptyQuestionMessage {
		writeJSON(w, http.StatusOK, ChatResponse{AIResponse: MessageBody{Message: answer.Text}})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		AIResponse: answer.Text,
		Language:   answer.Language,
		Tier:       answer.Tier,
		Sources:    answer.Sources,
	})
}

// handleChatHistory godoc
// @Summary      Chat history
// @Description  Returns the caller's turns, oldest first
// @Tags         Assistant
// @Produce      json
// @Security     BearerAuth
// @Param        category  query     string  false  "general or document"
// @Param        limit     query     int     false  "Max turns (default 50)"
// @Success      200       {array}   domain.ChatTurn
// @Failure      400       {object}  ErrorResponse
// @Router       /ai/chat/history [get]
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	category := domain.ChatCategory(r.URL.Query().Get("category"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	turns, err := s.assistant.History(r.Context(), authCtx.UserID, category, limit)
	if err != nil {
		writeDomainError(w, err, "failed to load chat history")
		return
	}
	if turns == nil {
		turns = []*domain.ChatTurn{}
	}

	writeJSON(w, http.StatusOK, turns)
}

// Index administration

// handleIndexStatus godoc
// @Summary      Index status
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.IndexStatus
// @Router       /admin/index [get]
func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.indexService.Status())
}

// handleRebuildIndex godoc
// @Summary      Rebuild the index
// @Description  Queues a rebuild_index task. Without a queue the rebuild runs in the background of this instance.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      RebuildRequest  false  "Reason"
// @Success      202      {object}  domain.Task
// @Failure      409      {object}  ErrorResponse  "Rebuild already running"
// @Router       /admin/index/rebuild [post]
func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RebuildRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	task, err := s.taskService.EnqueueRebuild(r.Context(), authCtx.UserID, req.Reason)
	if err != nil {
		writeDomainError(w, err, "failed to rebuild index")
		return
	}

	writeJSON(w, http.StatusAccepted, task)
}

// handleGetTask godoc
// @Summary      Task status
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskService.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, "failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps domain errors to status codes. Unknown errors are
// reported as 500 with fallback as message.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrRebuildInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable), errors.Is(err, domain.ErrIndexNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
