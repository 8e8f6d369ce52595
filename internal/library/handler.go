package library

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nextuptv/pkg/models"
)

// Handler exposes the sync triggers. These routes mutate the store and are
// mounted behind operator auth; a periodic job or an operator hits them.
type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync/library", h.syncLibrary)
	rg.POST("/sync/title/:mon_id", h.syncTitle)
	rg.POST("/sync/top-shows/:service", h.syncTopShows)
}

type syncLibraryReq struct {
	Catalog  string `json:"catalog"`
	Cursor   string `json:"cursor"`
	MaxPages int    `json:"max_pages"`
}

func (h *Handler) syncLibrary(c *gin.Context) {
	var req syncLibraryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	catalogName := strings.TrimSpace(req.Catalog)
	if catalogName == "" {
		catalogName = "netflix"
	}
	if req.MaxPages < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_pages must be >= 0"})
		return
	}

	// a full-catalog sync can run for minutes; the caller holds the request open
	report, err := h.Repo.SyncAll(c.Request.Context(), catalogName, req.Cursor, req.MaxPages)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) syncTitle(c *gin.Context) {
	monID := strings.TrimSpace(c.Param("mon_id"))
	if monID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mon_id required"})
		return
	}

	report, err := h.Repo.SyncTitle(c.Request.Context(), monID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) syncTopShows(c *gin.Context) {
	svc, ok := models.ParseStreamingService(c.Param("service"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service"})
		return
	}

	report, err := h.Repo.SyncTopShows(c.Request.Context(), svc)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}
