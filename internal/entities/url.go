package entities

import "time"

// URL represents a shortened URL entity in the database
type URL struct {
	ID          string     `json:"id"` // UUID
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	UserID      *string    `json:"user_id,omitempty"` // Pointer allows nil (for anonymous URLs), UUID
	ClickCount  int        `json:"click_count"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // Pointer allows nil (no expiration)
}

// Expired reports whether the URL has an expiration date in the past.
// A nil ExpiresAt means the URL never expires.
func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}
