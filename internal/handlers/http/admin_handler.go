package http

import (
	"net/http"

	"dataplug/internal/core/ports"
	"dataplug/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin ports.AdminService
}

func NewAdminHandler(admin ports.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// SetupRoutes registers the gated admin group and the public duplicate
// report. SessionMiddleware must run before these handlers.
func (h *AdminHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/api/check-duplicates", h.CheckDuplicates)

	admin := router.Group("/api/admin", middleware.RequireSession())
	{
		admin.GET("/users", h.ListUsers)
		admin.GET("/stream-stats", h.StreamStats)
		admin.GET("/summary", h.Summary)
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	accounts, err := h.admin.ListAccounts(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": accounts})
}

func (h *AdminHandler) StreamStats(c *gin.Context) {
	stats, err := h.admin.ListStreamStats(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *AdminHandler) Summary(c *gin.Context) {
	summary, err := h.admin.Summary(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AdminHandler) CheckDuplicates(c *gin.Context) {
	report, err := h.admin.DuplicateReport(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}
