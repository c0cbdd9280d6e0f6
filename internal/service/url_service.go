package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"snaplink-be/internal/cache"
	"snaplink-be/internal/entities"
	"snaplink-be/internal/models"
	"snaplink-be/internal/repository"
	"snaplink-be/internal/shortcode"
)

const (
	// cacheTTL bounds how long a resolved mapping may be served without
	// consulting the database. A cached entry is never re-checked for
	// expiration, so an expired link can stay resolvable for up to this
	// long after its expires_at. Accepted staleness window.
	cacheTTL = time.Hour

	// anonymousTTL is the default lifetime of URLs created without a
	// principal. Owned URLs without an explicit expiration never expire.
	anonymousTTL = 24 * time.Hour

	maxURLLength = 2048

	// maxGenerateAttempts bounds retries when a generated code loses the
	// insert race. Custom codes are never retried.
	maxGenerateAttempts = 3

	recentClickLimit = 10
)

// cacheKey builds the cache key for a short code
func cacheKey(shortCode string) string {
	return "url:" + shortCode
}

// Reserved short codes that collide with route prefixes
var reservedCodes = map[string]bool{
	"api":      true,
	"health":   true,
	"admin":    true,
	"urls":     true,
	"url":      true,
	"shorten":  true,
	"redirect": true,
	"qrcode":   true,
	"stats":    true,
}

// URLService defines the interface for URL business logic
type URLService interface {
	CreateShortURL(ctx context.Context, req *models.CreateURLRequest, principal *models.Principal) (*models.URLResponse, error)
	ResolveURL(ctx context.Context, shortCode string) (string, error)
	GetURLInfo(ctx context.Context, shortCode string) (*models.URLResponse, error)
	GetURLStats(ctx context.Context, shortCode string) (*models.URLStatsResponse, error)
	TrackClick(ctx context.Context, shortCode string, meta entities.ClickMetadata) error
	DeleteURL(ctx context.Context, shortCode string, principal *models.Principal) error
	GetUserURLs(ctx context.Context, userID string) ([]*models.URLResponse, error)
	ListAllURLs(ctx context.Context, userID *string, limit, offset int) ([]*models.AdminURLResponse, error)
}

type urlService struct {
	repo    repository.URLRepository
	cache   cache.Cache
	logger  *zap.Logger
	baseURL string
	now     func() time.Time
}

// NewURLService creates a new URL service
func NewURLService(repo repository.URLRepository, cacheClient cache.Cache, logger *zap.Logger, baseURL string) URLService {
	return &urlService{
		repo:    repo,
		cache:   cacheClient,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// validateOriginalURL checks that the URL parses, carries a scheme and
// fits the length limit
func validateOriginalURL(raw string) error {
	if raw == "" || len(raw) > maxURLLength {
		return ErrInvalidURL
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// CreateShortURL creates a new short URL for an optionally authenticated caller
func (s *urlService) CreateShortURL(ctx context.Context, req *models.CreateURLRequest, principal *models.Principal) (*models.URLResponse, error) {
	originalURL := strings.TrimSpace(req.URL)
	if err := validateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	expiresAt, err := s.resolveExpiration(req.ExpiresAt, principal)
	if err != nil {
		return nil, err
	}

	var userID *string
	if principal != nil {
		userID = &principal.ID
	}

	var created *entities.URL
	if req.ShortCode != nil && *req.ShortCode != "" {
		created, err = s.createWithCustomCode(ctx, strings.TrimSpace(*req.ShortCode), originalURL, userID, expiresAt)
	} else {
		created, err = s.createWithGeneratedCode(ctx, originalURL, userID, expiresAt)
	}
	if err != nil {
		return nil, err
	}

	// Best-effort cache population; a failure here only costs one
	// database lookup on the first resolve.
	if cacheErr := s.cache.Set(ctx, cacheKey(created.ShortCode), created.OriginalURL, cacheTTL); cacheErr != nil {
		s.logger.Warn("failed to cache new url mapping",
			zap.String("short_code", created.ShortCode),
			zap.Error(cacheErr),
		)
	}

	return s.toResponse(created), nil
}

// resolveExpiration applies the expiration policy: a supplied date must
// be strictly in the future; otherwise anonymous URLs get a 24h default
// and owned URLs never expire.
func (s *urlService) resolveExpiration(requested *time.Time, principal *models.Principal) (*time.Time, error) {
	if requested != nil {
		if !requested.After(s.now()) {
			return nil, ErrExpiresInPast
		}
		utc := requested.UTC()
		return &utc, nil
	}
	if principal == nil {
		expires := s.now().Add(anonymousTTL).UTC()
		return &expires, nil
	}
	return nil, nil
}

func (s *urlService) createWithCustomCode(ctx context.Context, customCode, originalURL string, userID *string, expiresAt *time.Time) (*entities.URL, error) {
	if !shortcode.ValidCustomCode(customCode) {
		return nil, ErrInvalidCustomCode
	}
	if reservedCodes[strings.ToLower(customCode)] {
		return nil, ErrReservedCode
	}

	// Advisory pre-check for a friendlier conflict error. The insert
	// below remains the authoritative uniqueness check, so a concurrent
	// create for the same code still loses with ErrCodeTaken.
	if _, err := s.repo.FindByShortCode(ctx, customCode); err == nil {
		return nil, ErrCodeTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check short code availability: %w", err)
	}

	return s.repo.Create(ctx, customCode, originalURL, userID, expiresAt)
}

func (s *urlService) createWithGeneratedCode(ctx context.Context, originalURL string, userID *string, expiresAt *time.Time) (*entities.URL, error) {
	var created *entities.URL

	backoff := retry.WithMaxRetries(maxGenerateAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, genErr := shortcode.Generate()
		if genErr != nil {
			return genErr
		}

		url, createErr := s.repo.Create(ctx, code, originalURL, userID, expiresAt)
		if errors.Is(createErr, repository.ErrCodeTaken) {
			s.logger.Info("generated short code collided, retrying", zap.String("short_code", code))
			return retry.RetryableError(createErr)
		}
		if createErr != nil {
			return createErr
		}

		created = url
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// ResolveURL returns the original URL for a short code. This is the
// redirect hot path: a cache hit returns immediately without touching
// the database or re-checking expiration.
func (s *urlService) ResolveURL(ctx context.Context, shortCode string) (string, error) {
	if cached, err := s.cache.Get(ctx, cacheKey(shortCode)); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Cache trouble degrades to a database lookup, never to a
		// user-facing error.
		s.logger.Warn("cache lookup failed", zap.String("short_code", shortCode), zap.Error(err))
	}

	url, err := s.repo.FindByShortCode(ctx, shortCode)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	// Expired links are reported exactly like missing ones
	if url.Expired(s.now()) {
		return "", ErrNotFound
	}

	if cacheErr := s.cache.Set(ctx, cacheKey(shortCode), url.OriginalURL, cacheTTL); cacheErr != nil {
		s.logger.Warn("failed to refresh cache", zap.String("short_code", shortCode), zap.Error(cacheErr))
	}

	return url.OriginalURL, nil
}

// GetURLInfo returns the URL view straight from the database. Info stays
// visible after expiry; only resolution is gated.
func (s *urlService) GetURLInfo(ctx context.Context, shortCode string) (*models.URLResponse, error) {
	url, err := s.repo.FindByShortCode(ctx, shortCode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.toResponse(url), nil
}

// GetURLStats returns the URL view plus its most recent clicks, newest first
func (s *urlService) GetURLStats(ctx context.Context, shortCode string) (*models.URLStatsResponse, error) {
	url, err := s.repo.FindByShortCode(ctx, shortCode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	clicks, err := s.repo.GetRecentClicks(ctx, url.ID, recentClickLimit)
	if err != nil {
		return nil, err
	}

	recent := make([]models.ClickView, 0, len(clicks))
	for _, click := range clicks {
		recent = append(recent, models.ClickView{
			ClickedAt: click.ClickedAt,
			UserAgent: click.UserAgent,
			Referer:   click.Referer,
		})
	}

	return &models.URLStatsResponse{
		URLResponse:  *s.toResponse(url),
		RecentClicks: recent,
	}, nil
}

// TrackClick performs the atomic increment-plus-insert for one click.
// A missing short code is not an error: the link may have been deleted
// between the redirect and this call.
func (s *urlService) TrackClick(ctx context.Context, shortCode string, meta entities.ClickMetadata) error {
	err := s.repo.RecordClick(ctx, shortCode, meta)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteURL removes a URL after the authorization check. The durable
// delete commits before the cache entry is evicted so a reported
// success is never followed by a stale cache hit outliving the row.
func (s *urlService) DeleteURL(ctx context.Context, shortCode string, principal *models.Principal) error {
	url, err := s.repo.FindByShortCode(ctx, shortCode)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if !canDelete(url, principal) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, shortCode); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if cacheErr := s.cache.Delete(ctx, cacheKey(shortCode)); cacheErr != nil {
		s.logger.Warn("failed to evict deleted url from cache",
			zap.String("short_code", shortCode),
			zap.Error(cacheErr),
		)
	}

	return nil
}

// GetUserURLs retrieves all URLs belonging to a user
func (s *urlService) GetUserURLs(ctx context.Context, userID string) ([]*models.URLResponse, error) {
	urls, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.URLResponse, 0, len(urls))
	for _, url := range urls {
		responses = append(responses, s.toResponse(url))
	}
	return responses, nil
}

// ListAllURLs retrieves a page of all URLs, optionally filtered by owner
func (s *urlService) ListAllURLs(ctx context.Context, userID *string, limit, offset int) ([]*models.AdminURLResponse, error) {
	urls, err := s.repo.ListAll(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.AdminURLResponse, 0, len(urls))
	for _, url := range urls {
		responses = append(responses, &models.AdminURLResponse{
			URLResponse: *s.toResponse(url),
			UserID:      url.UserID,
		})
	}
	return responses, nil
}

func (s *urlService) toResponse(url *entities.URL) *models.URLResponse {
	return &models.URLResponse{
		ShortCode:   url.ShortCode,
		ShortURL:    fmt.Sprintf("%s/%s", s.baseURL, url.ShortCode),
		OriginalURL: url.OriginalURL,
		ClickCount:  url.ClickCount,
		ExpiresAt:   url.ExpiresAt,
		CreatedAt:   url.CreatedAt,
	}
}
