package email

import (
	"log/slog"
	"time"

	"github.com/Meet0004/email-sync-system-intern/internal/parser"
	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// Normalizer converts raw fetched messages into canonical Messages.
type Normalizer struct {
	html   *parser.HTMLParser
	logger *slog.Logger
	now    func() time.Time
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		html:   parser.NewHTMLParser(),
		logger: logger.With("component", "normalizer"),
		now:    time.Now,
	}
}

// Normalize builds a canonical Message from a raw fetch. The id is minted
// fresh on every call; normalizing the same raw message twice yields two
// distinct records.
func (n *Normalizer) Normalize(accountID, folder string, raw *RawEmail) *models.Message {
	msg := &models.Message{
		ID:        models.NewMessageID(accountID),
		AccountID: accountID,
		Folder:    folder,
		From:      raw.From,
		To:        models.AddressList(raw.To),
		Subject:   raw.Subject,
		Body:      raw.BodyText,
		HTML:      raw.BodyHTML,
		Date:      raw.Date,
		UID:       raw.UID,
		Category:  models.CategoryUncategorized,
	}

	if msg.To == nil {
		msg.To = models.AddressList{}
	}
	if msg.Date.IsZero() {
		msg.Date = n.now()
	}
	// Store instants in UTC so ordering never depends on the sender's offset.
	msg.Date = msg.Date.UTC()
	if msg.UID == 0 {
		msg.UID = raw.SeqNum
	}

	// HTML-only messages still get a searchable plain-text body.
	if msg.Body == "" && msg.HTML != "" {
		text, err := n.html.Parse(msg.HTML)
		if err != nil {
			n.logger.Warn("failed to parse HTML body", "id", msg.ID, "error", err)
		} else {
			msg.Body = text
		}
	}

	return msg
}
