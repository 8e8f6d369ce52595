package resume

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	synchub "nextuptv/internal/sync"
	"nextuptv/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *synchub.Hub
}

func NewHandler(repo *Repo, hub *synchub.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

// RegisterRoutes mounts the public feed on r and the ingest endpoint on
// protected (the ingest client authenticates like the sync triggers do).
func (h *Handler) RegisterRoutes(r, protected *gin.RouterGroup) {
	r.GET("/resume", h.feed)
	protected.POST("/resume", h.ingest)
}

func (h *Handler) feed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	items, err := h.Repo.Feed(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[resume] feed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load resume feed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

type ingestReq struct {
	Entries []models.ResumeEntry `json:"entries" binding:"required"`
}

func (h *Handler) ingest(c *gin.Context) {
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entries required"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Repo.UpsertAll(ctx, req.Entries); err != nil {
		log.Printf("[resume] ingest: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store entries"})
		return
	}

	resolved, err := h.Repo.ResolveUnresolved(ctx, len(req.Entries)*2)
	if err != nil {
		log.Printf("[resume] resolve: %v", err)
	}

	if h.Hub != nil {
		go h.Hub.BroadcastJSON(gin.H{
			"type":     synchub.EventResume,
			"ingested": len(req.Entries),
			"resolved": resolved,
		})
	}

	c.JSON(http.StatusOK, gin.H{"ingested": len(req.Entries), "resolved": resolved})
}
