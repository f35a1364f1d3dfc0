package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/homereel/media-library/internal/middleware"
	"github.com/homereel/media-library/internal/models"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth     *AuthHandler
	Media    *MediaHandler
	Streams  *StreamHandler
	Tags     *TagHandler
	Comments *CommentHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes mounts the probes at the root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens middleware.TokenValidator) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	public := api.Group("/public", middleware.OptionalJWT(tokens))
	public.GET("/media/:id/stream", h.Streams.PublicStream)

	secured := api.Group("", middleware.JWT(tokens))
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	secured.GET("/auth/me", h.Auth.Me)
	secured.GET("/sources", h.Media.Sources)
	secured.GET("/metrics/summary", adminOnly, h.Metrics.Summary)

	media := secured.Group("/media")
	media.GET("", h.Media.List)
	media.POST("", adminOnly, h.Media.Create)
	media.POST("/upload", h.Media.Upload)
	media.GET("/export", adminOnly, h.Media.Export)
	media.GET("/:id", h.Media.Get)
	media.PATCH("/:id", h.Media.Update)
	media.DELETE("/:id", h.Media.Delete)
	media.GET("/:id/share-link", h.Media.ShareLink)

	media.GET("/:id/stream", h.Streams.Stream)
	media.GET("/:id/download", h.Streams.Download)

	media.GET("/:id/tags", h.Tags.List)
	media.POST("/:id/tags", h.Tags.Add)
	media.DELETE("/:id/tags/:tagId", h.Tags.Remove)

	media.GET("/:id/comments", h.Comments.List)
	media.POST("/:id/comments", h.Comments.Add)
	media.DELETE("/:id/comments/:commentId", h.Comments.Delete)
}
