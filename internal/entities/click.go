package entities

import "time"

// Click represents a single recorded access to a short URL.
// Rows are insert-only and removed together with the owning URL.
type Click struct {
	ID        int64     `json:"id"`
	URLID     string    `json:"url_id"` // UUID of the owning URL
	ClickedAt time.Time `json:"clicked_at"`
	UserAgent *string   `json:"user_agent,omitempty"`
	Referer   *string   `json:"referer,omitempty"`
	IPAddress *string   `json:"ip_address,omitempty"`
}

// ClickMetadata carries the best-effort request attributes captured on
// a redirect. Empty fields are stored as NULL, never validated.
type ClickMetadata struct {
	UserAgent string
	Referer   string
	IPAddress string
}
