package email

import "time"

// Config holds the IMAP server settings used for every session.
type Config struct {
	Host string
	Port string

	// TLS selects implicit TLS; otherwise the client upgrades with STARTTLS.
	TLS bool

	// Folder is selected read-only after login. Defaults to INBOX.
	Folder string

	// Timeout bounds each network round trip.
	Timeout time.Duration
}

// addr returns host:port.
func (c Config) addr() string {
	return c.Host + ":" + c.Port
}

// folder returns the configured folder, falling back to INBOX.
func (c Config) folder() string {
	if c.Folder == "" {
		return "INBOX"
	}
	return c.Folder
}

// timeout returns the configured round-trip timeout, falling back to 30s.
func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
