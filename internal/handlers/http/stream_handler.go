package http

import (
	"net/http"
	"strings"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/errors"
	"dataplug/pkg/validation"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	directory ports.DirectoryService
	catalog   ports.CatalogService
	usage     ports.UsageService
	probe     ports.ProbeService
}

func NewStreamHandler(
	directory ports.DirectoryService,
	catalog ports.CatalogService,
	usage ports.UsageService,
	probe ports.ProbeService,
) *StreamHandler {
	return &StreamHandler{
		directory: directory,
		catalog:   catalog,
		usage:     usage,
		probe:     probe,
	}
}

func (h *StreamHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/click", h.Click)
		api.POST("/add-stream", h.AddStream)
		api.GET("/ping", h.Ping)

		api.GET("/streams", h.SearchStreams)
		api.GET("/streams/:id", h.GetStream)
		api.GET("/streams/:id/snippet", h.GetSnippet)
	}
}

// Click counts one use of a stream's snippet.
func (h *StreamHandler) Click(c *gin.Context) {
	var req struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request body").WithCause(err))
		return
	}

	if err := h.usage.Increment(c.Request.Context(), domain.StreamID(req.ID), req.Type); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *StreamHandler) AddStream(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Endpoint    string `json:"endpoint"`
		Description string `json:"description"`
		Tags        string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("invalid request body").WithCause(err))
		return
	}

	tags, err := validation.ParseTags(req.Tags)
	if err != nil {
		_ = c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	stream, err := h.catalog.AddStream(c.Request.Context(), domain.NewStreamInput{
		Name:        req.Name,
		Endpoint:    req.Endpoint,
		Description: req.Description,
		Tags:        tags,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stream,
	})
}

// Ping probes an endpoint. Probe failures are reported in the body with a
// 200 status.
func (h *StreamHandler) Ping(c *gin.Context) {
	result := h.probe.Probe(c.Request.Context(), c.Query("endpoint"))

	body := gin.H{
		"endpoint":   result.Endpoint,
		"reachable":  result.Reachable,
		"latency":    result.LatencyMS,
		"checked_at": result.CheckedAt,
	}
	if result.Error != "" {
		body["error"] = result.Error
	}
	c.JSON(http.StatusOK, body)
}

func (h *StreamHandler) SearchStreams(c *gin.Context) {
	streams := h.directory.Search(c.Request.Context(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

func (h *StreamHandler) GetStream(c *gin.Context) {
	stream, err := h.catalog.GetStream(c.Request.Context(), domain.StreamID(c.Param("id")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stream": stream})
}

func (h *StreamHandler) GetSnippet(c *gin.Context) {
	lang := strings.ToLower(c.DefaultQuery("lang", "node"))

	code, err := h.catalog.Snippet(c.Request.Context(), domain.StreamID(c.Param("id")), lang)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"language": lang,
		"code":     code,
	})
}
