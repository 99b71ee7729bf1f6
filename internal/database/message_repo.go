package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// SearchFilter narrows a message search. Zero values mean "no filter".
type SearchFilter struct {
	Query     string
	Folder    string
	AccountID string
	Category  models.Category
	Offset    int
	Limit     int
}

// PutMessage upserts a message keyed by its id.
func (db *DB) PutMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message is missing an id")
	}
	query := `
		INSERT INTO messages (id, account_id, folder, uid, from_addr, to_addrs, subject, body_text, body_html, received_at, category, created_at)
		VALUES (:id, :account_id, :folder, :uid, :from_addr, :to_addrs, :subject, :body_text, :body_html, :received_at, :category, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			folder = excluded.folder,
			uid = excluded.uid,
			from_addr = excluded.from_addr,
			to_addrs = excluded.to_addrs,
			subject = excluded.subject,
			body_text = excluded.body_text,
			body_html = excluded.body_html,
			received_at = excluded.received_at,
			category = excluded.category
	`
	// Bind a copy so the caller's message is never mutated. Dates are stored
	// in UTC: sqlite compares DATETIME text lexicographically, so mixed UTC
	// offsets would sort by wall clock instead of by instant.
	rec := *msg
	rec.Date = rec.Date.UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if _, err := db.NamedExecContext(ctx, query, &rec); err != nil {
		return fmt.Errorf("failed to put message: %w", err)
	}
	return nil
}

// GetMessage returns a message by id
func (db *DB) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	query := `SELECT * FROM messages WHERE id = ?`
	err := db.GetContext(ctx, &msg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// SearchMessages returns matching messages, newest first by received date.
func (db *DB) SearchMessages(ctx context.Context, filter SearchFilter) ([]*models.Message, error) {
	var conditions []string
	var args []interface{}

	if filter.Query != "" {
		conditions = append(conditions, "(subject LIKE ? OR body_text LIKE ? OR from_addr LIKE ?)")
		term := "%" + filter.Query + "%"
		args = append(args, term, term, term)
	}
	if filter.Folder != "" {
		conditions = append(conditions, "folder = ?")
		args = append(args, filter.Folder)
	}
	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT * FROM messages
		%s
		ORDER BY received_at DESC
		LIMIT ? OFFSET ?
	`, whereClause)
	args = append(args, limit, offset)

	var messages []*models.Message
	if err := db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return messages, nil
}

// UpdateMessageCategory sets the category of a message. The value is checked
// against the closed enumeration before touching the store.
func (db *DB) UpdateMessageCategory(ctx context.Context, id string, category models.Category) error {
	if !category.Valid() {
		return fmt.Errorf("invalid category %q", category)
	}
	query := `UPDATE messages SET category = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, category, id)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryStats aggregates message counts per category.
type CategoryStats struct {
	Total      int                     `json:"total"`
	Categories map[models.Category]int `json:"categories"`
}

// GetCategoryStats returns message counts per category plus the total.
func (db *DB) GetCategoryStats(ctx context.Context) (*CategoryStats, error) {
	rows := []struct {
		Category models.Category `db:"category"`
		Count    int             `db:"count"`
	}{}
	query := `SELECT category, COUNT(*) AS count FROM messages GROUP BY category`
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get category stats: %w", err)
	}

	stats := &CategoryStats{Categories: make(map[models.Category]int, len(models.AllCategories))}
	for _, c := range models.AllCategories {
		stats.Categories[c] = 0
	}
	for _, row := range rows {
		stats.Categories[row.Category] = row.Count
		stats.Total += row.Count
	}
	return stats, nil
}
