package email

import (
	"fmt"
	"strings"
)

// IMAP endpoints for popular providers, keyed by mail domain.
var knownIMAPHosts = map[string]string{
	"gmail.com":      "imap.gmail.com",
	"googlemail.com": "imap.gmail.com",
	"outlook.com":    "outlook.office365.com",
	"hotmail.com":    "outlook.office365.com",
	"live.com":       "outlook.office365.com",
	"yahoo.com":      "imap.mail.yahoo.com",
	"icloud.com":     "imap.mail.me.com",
	"me.com":         "imap.mail.me.com",
	"aol.com":        "imap.aol.com",
	"zoho.com":       "imap.zoho.com",
	"fastmail.com":   "imap.fastmail.com",
	"gmx.com":        "imap.gmx.com",
	"yandex.com":     "imap.yandex.com",
	"mail.ru":        "imap.mail.ru",
}

// ResolveIMAPHost guesses the IMAP host for an email address. Used for
// account configurations that carry credentials but no explicit host.
func ResolveIMAPHost(email string) (string, error) {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid email address %q", email)
	}

	domain := strings.ToLower(parts[1])
	if host, ok := knownIMAPHosts[domain]; ok {
		return host, nil
	}

	// Conventional fallback
	return "imap." + domain, nil
}
