package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/core/services"
)

// ErrSessionNotFound is returned when a request names a session id the
// registry does not hold
var ErrSessionNotFound = errors.New("session not found")

// Store combines the persistence surfaces the API needs
type Store interface {
	services.SearchStore
	services.PreferenceReader
	services.PreferenceWriter
	services.CommitStore
}

// Handler contains dependencies for the route handlers
type Handler struct {
	Database Store
	Pipeline *search.Pipeline
	Mailer   services.InvitationSender
	Logger   *zap.Logger
	Sessions *SessionRegistry
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/search", h.Search)
		api.GET("/sessions/:id", h.GetSession)
		api.POST("/sessions/:id/toggle", h.ToggleSelection)
		api.POST("/sessions/:id/reorder", h.ReorderSelection)
		api.PUT("/sessions/:id/preferred-window", h.SetPreferredWindow)
		api.POST("/sessions/:id/commit", h.Commit)
	}

	return r
}
