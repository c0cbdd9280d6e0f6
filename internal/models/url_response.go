package models

import "time"

// URLResponse represents the public view of a short URL
type URLResponse struct {
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"` // Full short URL (base URL + short code)
	OriginalURL string     `json:"original_url"`
	ClickCount  int        `json:"click_count"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ClickView is a single recent click in the stats response
type ClickView struct {
	ClickedAt time.Time `json:"clicked_at"`
	UserAgent *string   `json:"user_agent,omitempty"`
	Referer   *string   `json:"referer,omitempty"`
}

// URLStatsResponse is the URL view plus its most recent clicks (newest first)
type URLStatsResponse struct {
	URLResponse
	RecentClicks []ClickView `json:"recent_clicks"`
}

// AdminURLResponse is the admin listing view, which also exposes the owner
type AdminURLResponse struct {
	URLResponse
	UserID *string `json:"user_id,omitempty"`
}
