package models

// Snippet is a small stored text fragment used to ground suggested replies.
type Snippet struct {
	ID      int64  `db:"id" json:"id"`
	Content string `db:"content" json:"content"`
}
