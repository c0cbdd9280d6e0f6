package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"snaplink-be/internal/entities"
)

// uniqueViolation is the Postgres error code for unique constraint violations
const uniqueViolation = "23505"

// URLRepository defines the interface for URL database operations.
// Expiration is a policy concern and is deliberately not filtered here:
// rows are returned as stored and the service decides what an expired
// row means for each operation.
type URLRepository interface {
	Create(ctx context.Context, shortCode, originalURL string, userID *string, expiresAt *time.Time) (*entities.URL, error)
	FindByShortCode(ctx context.Context, shortCode string) (*entities.URL, error)
	RecordClick(ctx context.Context, shortCode string, meta entities.ClickMetadata) error
	Delete(ctx context.Context, shortCode string) error
	GetRecentClicks(ctx context.Context, urlID string, limit int) ([]entities.Click, error)
	GetByUserID(ctx context.Context, userID string) ([]*entities.URL, error)
	ListAll(ctx context.Context, userID *string, limit, offset int) ([]*entities.URL, error)
}

type urlRepository struct {
	db *sql.DB
}

// NewURLRepository creates a new URL repository
func NewURLRepository(db *sql.DB) URLRepository {
	return &urlRepository{db: db}
}

const urlColumns = "id, short_code, original_url, user_id, click_count, created_at, expires_at"

func scanURL(row interface{ Scan(...interface{}) error }) (*entities.URL, error) {
	var url entities.URL
	err := row.Scan(
		&url.ID,
		&url.ShortCode,
		&url.OriginalURL,
		&url.UserID,
		&url.ClickCount,
		&url.CreatedAt,
		&url.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

// Create inserts a new URL. Returns ErrCodeTaken if the short code is
// already in use.
func (r *urlRepository) Create(ctx context.Context, shortCode, originalURL string, userID *string, expiresAt *time.Time) (*entities.URL, error) {
	// Store timestamps in UTC
	if expiresAt != nil {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}

	query := `
		INSERT INTO urls (short_code, original_url, user_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + urlColumns

	url, err := scanURL(r.db.QueryRowContext(ctx, query, shortCode, originalURL, userID, expiresAt))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to create URL: %w", err)
	}

	return url, nil
}

// FindByShortCode finds a URL by its short code, expired or not
func (r *urlRepository) FindByShortCode(ctx context.Context, shortCode string) (*entities.URL, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE short_code = $1`

	url, err := scanURL(r.db.QueryRowContext(ctx, query, shortCode))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find URL: %w", err)
	}

	return url, nil
}

// RecordClick increments the click counter and inserts a click row in a
// single transaction: both effects commit or neither does. The counter
// update happens in the database, so concurrent calls never lose
// increments. Returns ErrNotFound if the short code does not exist
// (for example when a delete won the race).
func (r *urlRepository) RecordClick(ctx context.Context, shortCode string, meta entities.ClickMetadata) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin click transaction: %w", err)
	}
	defer tx.Rollback()

	var urlID string
	err = tx.QueryRowContext(ctx, `
		UPDATE urls
		SET click_count = click_count + 1
		WHERE short_code = $1
		RETURNING id
	`, shortCode).Scan(&urlID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO url_clicks (url_id, user_agent, referer, ip_address)
		VALUES ($1, $2, $3, $4)
	`, urlID, nullable(meta.UserAgent), nullable(meta.Referer), nullable(meta.IPAddress))
	if err != nil {
		return fmt.Errorf("failed to log click: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit click transaction: %w", err)
	}
	return nil
}

// Delete removes a URL; its clicks go with it via ON DELETE CASCADE
func (r *urlRepository) Delete(ctx context.Context, shortCode string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM urls WHERE short_code = $1`, shortCode)
	if err != nil {
		return fmt.Errorf("failed to delete URL: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetRecentClicks returns the most recent clicks for a URL, newest first
func (r *urlRepository) GetRecentClicks(ctx context.Context, urlID string, limit int) ([]entities.Click, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url_id, clicked_at, user_agent, referer, ip_address
		FROM url_clicks
		WHERE url_id = $1
		ORDER BY clicked_at DESC
		LIMIT $2
	`, urlID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}
	defer rows.Close()

	var clicks []entities.Click
	for rows.Next() {
		var click entities.Click
		err := rows.Scan(
			&click.ID,
			&click.URLID,
			&click.ClickedAt,
			&click.UserAgent,
			&click.Referer,
			&click.IPAddress,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, click)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

// GetByUserID retrieves all URLs for a specific user, newest first
func (r *urlRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.URL, error) {
	query := `SELECT ` + urlColumns + ` FROM urls WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get URLs: %w", err)
	}
	defer rows.Close()

	return collectURLs(rows)
}

// ListAll retrieves a page of URLs, optionally filtered by owner
func (r *urlRepository) ListAll(ctx context.Context, userID *string, limit, offset int) ([]*entities.URL, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if userID != nil {
		query := `SELECT ` + urlColumns + ` FROM urls WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = r.db.QueryContext(ctx, query, *userID, limit, offset)
	} else {
		query := `SELECT ` + urlColumns + ` FROM urls ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = r.db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}
	defer rows.Close()

	return collectURLs(rows)
}

func collectURLs(rows *sql.Rows) ([]*entities.URL, error) {
	var urls []*entities.URL
	for rows.Next() {
		url, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, url)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating URLs: %w", err)
	}

	return urls, nil
}

// nullable maps empty strings to NULL for optional click metadata
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
