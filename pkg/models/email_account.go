package models

import "fmt"

// AccountConfig describes one mail account to synchronize. Loaded once at
// startup and immutable for the process lifetime.
type AccountConfig struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Host     string `json:"host"` // e.g., imap.gmail.com
	Port     int    `json:"port"` // e.g., 993
	TLS      bool   `json:"tls"`
}

// Addr returns the host:port dial address.
func (a AccountConfig) Addr() string {
	port := a.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", a.Host, port)
}

// HasCredentials reports whether the account can be connected at all.
// Accounts without credentials are skipped at startup.
func (a AccountConfig) HasCredentials() bool {
	return a.Email != "" && a.Password != ""
}
