package models

import "time"

// CreateURLRequest represents the request body for creating a short URL
type CreateURLRequest struct {
	URL       string     `json:"url" binding:"required"` // Original URL, validated in the service layer
	ExpiresAt *time.Time `json:"expires_at,omitempty"`   // Optional expiration date (must be in the future)
	ShortCode *string    `json:"short_code,omitempty"`   // Optional custom short code
}
