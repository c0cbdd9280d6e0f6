// Package mocks provides in-memory test doubles for the repository
// layer. The fake repository mirrors the real adapter's contract,
// including sentinel errors and the atomicity of RecordClick, so
// service and controller tests exercise real orchestration logic.
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"snaplink-be/internal/entities"
	"snaplink-be/internal/repository"
)

type FakeURLRepository struct {
	mu          sync.Mutex
	urls        map[string]*entities.URL    // keyed by short code
	clicks      map[string][]entities.Click // keyed by URL id
	nextClickID int64

	// FailCreates makes the next N Create calls return ErrCodeTaken,
	// simulating lost insert races for retry tests.
	FailCreates int

	// Err, when set, is returned by every operation to simulate a
	// database outage.
	Err error
}

func NewFakeURLRepository() *FakeURLRepository {
	return &FakeURLRepository{
		urls:   make(map[string]*entities.URL),
		clicks: make(map[string][]entities.Click),
	}
}

func (f *FakeURLRepository) Create(_ context.Context, shortCode, originalURL string, userID *string, expiresAt *time.Time) (*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if f.FailCreates > 0 {
		f.FailCreates--
		return nil, repository.ErrCodeTaken
	}
	if _, exists := f.urls[shortCode]; exists {
		return nil, repository.ErrCodeTaken
	}

	url := &entities.URL{
		ID:          uuid.NewString(),
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	f.urls[shortCode] = url

	copied := *url
	return &copied, nil
}

func (f *FakeURLRepository) FindByShortCode(_ context.Context, shortCode string) (*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	url, ok := f.urls[shortCode]
	if !ok {
		return nil, repository.ErrNotFound
	}

	copied := *url
	return &copied, nil
}

func (f *FakeURLRepository) RecordClick(_ context.Context, shortCode string, meta entities.ClickMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	url, ok := f.urls[shortCode]
	if !ok {
		return repository.ErrNotFound
	}

	// Counter increment and click insert happen under the same lock,
	// matching the real adapter's single transaction.
	url.ClickCount++
	f.nextClickID++
	click := entities.Click{
		ID:        f.nextClickID,
		URLID:     url.ID,
		ClickedAt: time.Now().UTC(),
	}
	if meta.UserAgent != "" {
		click.UserAgent = &meta.UserAgent
	}
	if meta.Referer != "" {
		click.Referer = &meta.Referer
	}
	if meta.IPAddress != "" {
		click.IPAddress = &meta.IPAddress
	}
	f.clicks[url.ID] = append(f.clicks[url.ID], click)

	return nil
}

func (f *FakeURLRepository) Delete(_ context.Context, shortCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	url, ok := f.urls[shortCode]
	if !ok {
		return repository.ErrNotFound
	}

	delete(f.urls, shortCode)
	delete(f.clicks, url.ID) // cascade

	return nil
}

func (f *FakeURLRepository) GetRecentClicks(_ context.Context, urlID string, limit int) ([]entities.Click, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	clicks := append([]entities.Click(nil), f.clicks[urlID]...)
	sort.Slice(clicks, func(i, j int) bool {
		if clicks[i].ClickedAt.Equal(clicks[j].ClickedAt) {
			return clicks[i].ID > clicks[j].ID
		}
		return clicks[i].ClickedAt.After(clicks[j].ClickedAt)
	})
	if len(clicks) > limit {
		clicks = clicks[:limit]
	}
	return clicks, nil
}

func (f *FakeURLRepository) GetByUserID(_ context.Context, userID string) ([]*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	var urls []*entities.URL
	for _, url := range f.urls {
		if url.UserID != nil && *url.UserID == userID {
			copied := *url
			urls = append(urls, &copied)
		}
	}
	sortNewestFirst(urls)
	return urls, nil
}

func (f *FakeURLRepository) ListAll(_ context.Context, userID *string, limit, offset int) ([]*entities.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	var urls []*entities.URL
	for _, url := range f.urls {
		if userID != nil && (url.UserID == nil || *url.UserID != *userID) {
			continue
		}
		copied := *url
		urls = append(urls, &copied)
	}
	sortNewestFirst(urls)

	if offset >= len(urls) {
		return nil, nil
	}
	urls = urls[offset:]
	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}

// ClickCount reports the number of stored click rows for a short code.
func (f *FakeURLRepository) ClickCount(shortCode string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	url, ok := f.urls[shortCode]
	if !ok {
		return 0
	}
	return len(f.clicks[url.ID])
}

func sortNewestFirst(urls []*entities.URL) {
	sort.Slice(urls, func(i, j int) bool {
		return urls[i].CreatedAt.After(urls[j].CreatedAt)
	})
}
