// Package handler exposes the grievance engine over HTTP (gin) and streams
// lifecycle events to dashboards over a websocket.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/connectivity"
	"incluverse/backend/internal/events"
	"incluverse/backend/internal/localization"
	"incluverse/backend/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler holds the collaborators of the HTTP API.
type Handler struct {
	Service   *complaint.Service
	Signal    *connectivity.Signal
	Hub       *events.Hub
	Localizer *localization.Localizer
	Auth      *Auth

	// PublicURL is the base of tracking links on receipts.
	PublicURL string
}

func NewHandler(svc *complaint.Service, signal *connectivity.Signal, hub *events.Hub, loc *localization.Localizer, auth *Auth) *Handler {
	return &Handler{Service: svc, Signal: signal, Hub: hub, Localizer: loc, Auth: auth}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
	}))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/token", h.IssueToken)
	r.GET("/languages", h.Languages)
	r.GET("/ws", h.Auth.OptionalAuth(), h.ServeWebSocket)

	c := r.Group("/complaints")
	c.GET("", h.SearchComplaints)
	c.GET("/recent", h.RecentComplaints)
	c.GET("/stats", h.ComplaintStats)
	c.GET("/:id", h.GetComplaint)
	c.GET("/:id/receipt", h.Receipt)
	c.POST("", h.SubmitComplaint)
	c.POST("/:id/rating", h.RateComplaint)

	ops := r.Group("", h.RequireResponder())
	ops.POST("/connectivity", h.SetConnectivity)
	ops.POST("/sync", h.Sync)

	responder := c.Group("", h.RequireResponder())
	responder.GET("/queue", h.ResponderQueue)
	responder.POST("/:id/response", h.SetResponse)
	responder.POST("/:id/auto-response", h.AutoResponse)
	responder.PUT("/:id/status", h.SetStatus)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}

// language picks the response language: ?language=, then Accept-Language.
func language(c *gin.Context) string {
	if l := c.Query("language"); l != "" {
		return l
	}
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return "en"
	}
	first, _, _ := strings.Cut(accept, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}

func (h *Handler) message(c *gin.Context, key string, args ...any) string {
	text := h.Localizer.GetString(language(c), key)
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

func (h *Handler) abort(c *gin.Context, status int, key, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"error": detail, "message": h.message(c, key)})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.abort(c, http.StatusBadRequest, "invalid_request", err.Error())
}

// writeError maps engine error classes onto HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, key := classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	}
	h.abort(c, status, key, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, complaint.ErrEmptyText):
		return http.StatusBadRequest, "record_first"
	case errors.Is(err, complaint.ErrEmptyResponse):
		return http.StatusBadRequest, "enter_response"
	case errors.Is(err, complaint.ErrRatingRange):
		return http.StatusBadRequest, "rating_invalid"
	case errors.Is(err, complaint.ErrNotResolved):
		return http.StatusBadRequest, "rating_not_resolved"
	case errors.Is(err, complaint.ErrInvalidTransition):
		return http.StatusBadRequest, "invalid_transition"
	case errors.Is(err, complaint.ErrUnknownLanguage):
		return http.StatusBadRequest, "unknown_language"
	case errors.Is(err, complaint.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, complaint.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, complaint.ErrPersistence):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, complaint.ErrSync):
		return http.StatusBadGateway, "sync_failed"
	default:
		return http.StatusInternalServerError, "invalid_request"
	}
}

type languageInfo struct {
	Tag        models.Language `json:"tag"`
	Name       string          `json:"name"`
	Translated bool            `json:"translated"`
}

// Languages lists the languages a complaint can be filed in and whether the
// UI messages are translated for each.
func (h *Handler) Languages(c *gin.Context) {
	catalogues := h.Localizer.Languages()
	out := make([]languageInfo, 0, len(models.Languages))
	for tag, name := range models.Languages {
		short, _, _ := strings.Cut(string(tag), "-")
		out = append(out, languageInfo{Tag: tag, Name: name, Translated: slices.Contains(catalogues, short)})
	}
	slices.SortFunc(out, func(a, b languageInfo) int { return strings.Compare(string(a.Tag), string(b.Tag)) })
	c.JSON(http.StatusOK, gin.H{"languages": out})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"online":  h.Signal.Online(),
		"clients": h.Hub.ClientCount(),
	})
}
