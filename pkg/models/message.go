package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is the canonical pipeline representation of an email,
// independent of IMAP transport details.
type Message struct {
	ID        string      `db:"id" json:"id"`
	AccountID string      `db:"account_id" json:"accountId"`
	Folder    string      `db:"folder" json:"folder"`
	From      string      `db:"from_addr" json:"from"`
	To        AddressList `db:"to_addrs" json:"to"`
	Subject   string      `db:"subject" json:"subject"`
	Body      string      `db:"body_text" json:"body"`
	HTML      string      `db:"body_html" json:"html,omitempty"`
	Date      time.Time   `db:"received_at" json:"date"`
	UID       uint32      `db:"uid" json:"-"` // mailbox-local IMAP UID
	Category  Category    `db:"category" json:"category"`
	CreatedAt time.Time   `db:"created_at" json:"-"`
}

// NewMessageID mints a globally unique message id. UIDs are only unique
// within one mailbox, so the id combines the account with a fresh token.
func NewMessageID(accountID string) string {
	return fmt.Sprintf("%s-%s", accountID, uuid.NewString())
}

// AddressList is an ordered list of recipient addresses, stored as JSON.
type AddressList []string

// Value implements driver.Valuer.
func (l AddressList) Value() (driver.Value, error) {
	if l == nil {
		l = AddressList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal address list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *AddressList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = AddressList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into AddressList", src)
	}
}
