package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"snaplink-be/internal/clicks"
	"snaplink-be/internal/entities"
	"snaplink-be/internal/middleware"
	"snaplink-be/internal/models"
	"snaplink-be/internal/service"
)

type ShortenerController struct {
	urlService service.URLService
	recorder   *clicks.Recorder
}

func NewShortenerController(urlService service.URLService, recorder *clicks.Recorder) *ShortenerController {
	return &ShortenerController{
		urlService: urlService,
		recorder:   recorder,
	}
}

// CreateShortURL handles POST /api/v1/shorten (anonymous or authenticated)
func (sc *ShortenerController) CreateShortURL(c *gin.Context) {
	var req models.CreateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	principal := middleware.CurrentPrincipal(c)

	response, err := sc.urlService.CreateShortURL(c.Request.Context(), &req, principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// RedirectToURL handles GET /:shortCode - redirects to the original URL.
// The click is handed to the recorder and the redirect is answered
// immediately; the click row may still be in flight when the client
// receives the response.
func (sc *ShortenerController) RedirectToURL(c *gin.Context) {
	shortCode := c.Param("shortCode")

	originalURL, err := sc.urlService.ResolveURL(c.Request.Context(), shortCode)
	if err != nil {
		respondResolveError(c, err)
		return
	}

	sc.recorder.Record(shortCode, entities.ClickMetadata{
		UserAgent: c.GetHeader("User-Agent"),
		Referer:   c.GetHeader("Referer"),
		IPAddress: c.ClientIP(),
	})

	c.Redirect(http.StatusFound, originalURL)
}

// GetOriginalURLPublic handles GET /api/v1/redirect/:shortCode - returns
// the original URL as JSON instead of redirecting. Clicks count the same.
func (sc *ShortenerController) GetOriginalURLPublic(c *gin.Context) {
	shortCode := c.Param("shortCode")

	originalURL, err := sc.urlService.ResolveURL(c.Request.Context(), shortCode)
	if err != nil {
		respondResolveError(c, err)
		return
	}

	sc.recorder.Record(shortCode, entities.ClickMetadata{
		UserAgent: c.GetHeader("User-Agent"),
		Referer:   c.GetHeader("Referer"),
		IPAddress: c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"original_url": originalURL,
	})
}

// GetURLInfo handles GET /api/v1/url/:shortCode - returns the URL view
func (sc *ShortenerController) GetURLInfo(c *gin.Context) {
	info, err := sc.urlService.GetURLInfo(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// GetURLStats handles GET /api/v1/url/:shortCode/stats - returns the URL
// view plus its most recent clicks
func (sc *ShortenerController) GetURLStats(c *gin.Context) {
	stats, err := sc.urlService.GetURLStats(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DeleteURL handles DELETE /api/v1/url/:shortCode (anonymous or authenticated)
func (sc *ShortenerController) DeleteURL(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)

	err := sc.urlService.DeleteURL(c.Request.Context(), c.Param("shortCode"), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUserURLs handles GET /api/v1/urls - returns all URLs of the caller
func (sc *ShortenerController) GetUserURLs(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	urls, err := sc.urlService.GetUserURLs(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, urls)
}

// respondResolveError is respondError with the resolution-specific 404
// message; anything other than a missing or expired code falls through to
// the shared mapping so repository failures still surface as 500.
func respondResolveError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found or expired"})
		return
	}
	respondError(c, err)
}

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
	case errors.Is(err, service.ErrCodeTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Short code is already taken"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to delete this URL"})
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInvalidCustomCode),
		errors.Is(err, service.ErrReservedCode),
		errors.Is(err, service.ErrExpiresInPast):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
