// Package server exposes a planner backend over the REST shape the gateway
// client speaks. `agenda serve` runs it over the local store.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/planner"
)

// Server holds the router and what the handlers need.
type Server struct {
	backend planner.Backend
	zone    *clock.Zone
	token   string
	router  *gin.Engine
}

// New builds the router. When token is non-empty every route except
// /ping requires "Authorization: Bearer <token>".
func New(backend planner.Backend, zone *clock.Zone, token string) *Server {
	if zone == nil {
		zone = clock.NewZone("")
	}
	s := &Server{backend: backend, zone: zone, token: strings.TrimSpace(token)}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	api.Use(s.requireToken())
	{
		api.GET("/auth/me", s.me)
		api.POST("/auth/refresh", s.refresh)
		api.POST("/auth/logout", s.logout)

		api.GET("/tags", s.listTags)
		api.POST("/tags", s.createTag)
		api.PUT("/tags/:id", s.updateTag)
		api.DELETE("/tags/:id", s.deleteTag)

		api.GET("/activities", s.listActivities)
		api.POST("/activities", s.createActivity)
		api.PUT("/activities/:id", s.updateActivity)
		api.DELETE("/activities/:id", s.deleteActivity)

		api.GET("/calendar-events", s.listEvents)
		api.GET("/calendar-events/activity/:id", s.listEventsByActivity)
		api.POST("/calendar-events", s.createEvent)
		api.PUT("/calendar-events/:id", s.updateEvent)
		api.DELETE("/calendar-events/:id", s.deleteEvent)
	}

	s.router = r
	return s
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("serving planner api", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		appLog.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
		)
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		c.Next()
	}
}

// fail writes err in the backend's error shape.
func fail(c *gin.Context, err error) {
	var ve *apierrors.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": ve.Message, "errors": ve.Fields})
		return
	}
	var se *apierrors.ServerError
	if errors.As(err, &se) {
		c.JSON(se.Status, gin.H{"message": se.Message})
		return
	}
	appLog.Error("request failed", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body", "error": err.Error()})
}
