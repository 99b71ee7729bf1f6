package database

import (
	"context"
	"fmt"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// ReplaceSnippets drops the stored snippet set and inserts contents in order.
// Called at startup to reset the reply context to the default set.
func (db *DB) ReplaceSnippets(ctx context.Context, contents []string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snippets`); err != nil {
		return fmt.Errorf("failed to clear snippets: %w", err)
	}
	for _, content := range contents {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snippets (content) VALUES (?)`, content); err != nil {
			return fmt.Errorf("failed to insert snippet: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snippets: %w", err)
	}
	return nil
}

// AddSnippet appends one snippet and returns it with its assigned id.
func (db *DB) AddSnippet(ctx context.Context, content string) (*models.Snippet, error) {
	result, err := db.ExecContext(ctx, `INSERT INTO snippets (content) VALUES (?)`, content)
	if err != nil {
		return nil, fmt.Errorf("failed to add snippet: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return &models.Snippet{ID: id, Content: content}, nil
}

// ListSnippets returns all snippets in insertion order.
func (db *DB) ListSnippets(ctx context.Context) ([]models.Snippet, error) {
	var snippets []models.Snippet
	query := `SELECT * FROM snippets ORDER BY id ASC`
	if err := db.SelectContext(ctx, &snippets, query); err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}
	return snippets, nil
}
