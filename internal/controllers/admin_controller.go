package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"snaplink-be/internal/middleware"
	"snaplink-be/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AdminController struct {
	urlService service.URLService
}

func NewAdminController(urlService service.URLService) *AdminController {
	return &AdminController{urlService: urlService}
}

// ListURLs handles GET /api/v1/admin/urls?page=&limit=&userId=
// Pages are 1-indexed; limit is capped at 100.
func (ac *AdminController) ListURLs(c *gin.Context) {
	page := positiveQueryInt(c, "page", 1)
	limit := positiveQueryInt(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var userID *string
	if id := c.Query("userId"); id != "" {
		userID = &id
	}

	urls, err := ac.urlService.ListAllURLs(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, urls)
}

// DeleteURL handles DELETE /api/v1/admin/urls/:shortCode - admins can
// delete any URL; the service sees the admin principal and skips the
// ownership check.
func (ac *AdminController) DeleteURL(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)

	err := ac.urlService.DeleteURL(c.Request.Context(), c.Param("shortCode"), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func positiveQueryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
