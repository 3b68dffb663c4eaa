package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentfold/agentfold/pkg/engine"
	"github.com/agentfold/agentfold/pkg/event"
	"github.com/agentfold/agentfold/pkg/projection"
	"github.com/agentfold/agentfold/pkg/store"
)

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.events.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// createSessionHandler handles POST /api/v1/sessions: start a session
// with the initial message and process the thread to completion of the
// current turn.
func (s *Server) createSessionHandler(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
		return
	}

	threadID, err := s.agent.StartSession(c.Request.Context(), req.Message)
	if err != nil {
		s.writeError(c, err)
		return
	}

	state, err := s.agent.ProcessThread(c.Request.Context(), threadID)
	if err != nil && !isMaxIterations(err) {
		s.log.Error("Thread processing failed", "thread_id", threadID, "error", err)
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(state))
}

// postMessageHandler handles POST /api/v1/sessions/:id/messages:
// append a follow-up message and process the next turn.
func (s *Server) postMessageHandler(c *gin.Context) {
	threadID := c.Param("id")
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
		return
	}

	state, ok := s.sessionState(c, threadID)
	if !ok {
		return
	}
	if !state.Active() {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "session is " + string(state.Status)})
		return
	}

	if err := s.agent.AddUserMessage(c.Request.Context(), threadID, req.Message); err != nil {
		s.writeError(c, err)
		return
	}

	state, err := s.agent.ProcessThread(c.Request.Context(), threadID)
	if err != nil && !isMaxIterations(err) {
		s.log.Error("Thread processing failed", "thread_id", threadID, "error", err)
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// getSessionHandler handles GET /api/v1/sessions/:id.
func (s *Server) getSessionHandler(c *gin.Context) {
	state, ok := s.sessionState(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// getEventsHandler handles GET /api/v1/sessions/:id/events.
func (s *Server) getEventsHandler(c *gin.Context) {
	events, ok := s.readEvents(c, c.Param("id"))
	if !ok {
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse(ev))
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

// listSessionsHandler handles GET /api/v1/sessions.
func (s *Server) listSessionsHandler(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit: must be 1-100"})
			return
		}
		limit = n
	}

	streams, err := s.events.ListStreams(c.Request.Context(), store.DefaultCategory, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	threads := make([]string, 0, len(streams))
	for _, streamName := range streams {
		if _, _, threadID, err := store.ParseStreamName(streamName); err == nil {
			threads = append(threads, threadID)
		}
	}
	c.JSON(http.StatusOK, SessionListResponse{Threads: threads})
}

// terminateSessionHandler handles POST /api/v1/sessions/:id/terminate.
func (s *Server) terminateSessionHandler(c *gin.Context) {
	threadID := c.Param("id")
	state, ok := s.sessionState(c, threadID)
	if !ok {
		return
	}

	if err := s.agent.TerminateSession(c.Request.Context(), threadID, event.CompletionUserTerminated); err != nil {
		s.writeError(c, err)
		return
	}
	state, ok = s.sessionState(c, threadID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(state))
}

// sessionState reads and projects a session, writing the HTTP error
// itself when the session cannot be loaded.
func (s *Server) sessionState(c *gin.Context, threadID string) (projection.SessionState, bool) {
	events, ok := s.readEvents(c, threadID)
	if !ok {
		return projection.SessionState{}, false
	}
	state, err := projection.ProjectSessionState(events)
	if err != nil {
		s.writeError(c, err)
		return projection.SessionState{}, false
	}
	return state, true
}

func (s *Server) readEvents(c *gin.Context, threadID string) ([]event.Envelope, bool) {
	streamName, err := store.BuildStreamName(store.DefaultCategory, store.DefaultVersion, threadID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return nil, false
	}
	messages, err := s.events.ReadAll(c.Request.Context(), streamName, 0)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	if len(messages) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return nil, false
	}
	events, err := event.FromMessages(messages)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return events, true
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var conflict *store.ConcurrencyError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func isMaxIterations(err error) bool {
	var maxErr *engine.MaxIterationsError
	return errors.As(err, &maxErr)
}
