// Package api exposes a thin HTTP surface over agent sessions for UI
// consumers: create a session, post follow-up messages, inspect state
// and raw events. Processing runs synchronously inside the request.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentfold/agentfold/pkg/projection"
	"github.com/agentfold/agentfold/pkg/store"
)

// Agent is the slice of the engine the API depends on.
type Agent interface {
	StartSession(ctx context.Context, message string) (string, error)
	AddUserMessage(ctx context.Context, threadID, message string) error
	ProcessThread(ctx context.Context, threadID string) (projection.SessionState, error)
	TerminateSession(ctx context.Context, threadID, reason string) error
}

// EventSource is the read side of the store the API depends on.
type EventSource interface {
	ReadAll(ctx context.Context, streamName string, fromPosition int64) ([]store.Message, error)
	ListStreams(ctx context.Context, category string, limit int) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// Server hosts the HTTP API.
type Server struct {
	agent  Agent
	events EventSource
	router *gin.Engine
	http   *http.Server
	log    *slog.Logger
}

// NewServer builds the API server and registers its routes.
func NewServer(agent Agent, events EventSource) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		agent:  agent,
		events: events,
		router: router,
		log:    slog.Default(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/api/v1")
	v1.GET("/health", s.healthHandler)
	v1.GET("/sessions", s.listSessionsHandler)
	v1.POST("/sessions", s.createSessionHandler)
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.GET("/sessions/:id/events", s.getEventsHandler)
	v1.POST("/sessions/:id/messages", s.postMessageHandler)
	v1.POST("/sessions/:id/terminate", s.terminateSessionHandler)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves HTTP on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
