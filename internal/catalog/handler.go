package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"nextuptv/pkg/models"
)

// Handler serves the read-only browse surface consumed by the TV UI.
type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/titles", h.list)
	rg.GET("/titles/:id", h.getByID)
	rg.GET("/titles/:id/launch", h.launch)
	rg.GET("/genres", h.genres)
	rg.GET("/top-shows/:service", h.topShows)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Kind:   c.Query("kind"),
		Genre:  c.Query("genre"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.CountTitles(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.ListTitles(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	t, err := h.Repo.GetTitle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	credits, err := h.Repo.TitleCredits(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credits failed"})
		return
	}
	externals, err := h.Repo.TitleExternalIDs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "external ids failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":        t,
		"credits":      credits,
		"external_ids": externals,
	})
}

// launch resolves the deep-link URL for a title on one streaming service.
// Rows carrying the unknown-id sentinel have nothing launchable.
func (h *Handler) launch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	svc, ok := models.ParseStreamingService(c.Query("service"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service"})
		return
	}

	externals, err := h.Repo.TitleExternalIDs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "external ids failed"})
		return
	}

	for _, e := range externals {
		if e.Provider != svc {
			continue
		}
		if e.ProviderID == UnknownProviderID {
			break
		}
		c.JSON(http.StatusOK, gin.H{
			"service":    svc,
			"launch_url": svc.LaunchURL(e.ProviderID),
		})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no launchable id for service"})
}

func (h *Handler) genres(c *gin.Context) {
	genres, err := h.Repo.ListGenres(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": genres})
}

func (h *Handler) topShows(c *gin.Context) {
	svc, ok := models.ParseStreamingService(c.Param("service"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service"})
		return
	}

	items, err := h.Repo.TopShowsList(c.Request.Context(), svc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "top shows failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": svc, "items": items})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
