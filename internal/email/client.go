package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// RawEmail is a protocol-level message as fetched from IMAP. Recipient
// shape-sniffing happens here, at the protocol boundary: To is always a
// flat ordered list of address strings by the time anything else sees it.
type RawEmail struct {
	UID       uint32
	SeqNum    uint32
	MessageID string
	From      string
	To        []string
	Subject   string
	Date      time.Time
	BodyText  string
	BodyHTML  string
}

// ClientConfig configuration for one IMAP connection
type ClientConfig struct {
	Account           models.AccountConfig
	Folder            string // defaults to INBOX
	BacklogWindow     time.Duration
	ReconnectDelay    time.Duration
	KeepaliveInterval time.Duration
	DialTimeout       time.Duration
}

// Client maintains one live IMAP session for a single account. It performs
// a one-time backlog fetch after every (re)connect, then watches the folder
// and emits raw messages on a bounded channel until stopped.
type Client struct {
	config ClientConfig
	logger *slog.Logger

	mu        sync.Mutex
	client    *client.Client
	connected bool
	phase     string
	seen      map[uint32]struct{} // UIDs emitted during this connection

	events  chan *RawEmail
	stopCh  chan struct{}
	stopped bool
	stopMu  sync.Mutex
}

// Connection lifecycle phases as reported by Status.
const (
	phaseDisconnected = "disconnected"
	phaseConnecting   = "connecting"
	phaseReady        = "ready"
	phaseWatching     = "watching"
	phaseStopped      = "stopped"
)

// NewClient creates a new IMAP client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.BacklogWindow == 0 {
		cfg.BacklogWindow = 30 * 24 * time.Hour
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.KeepaliveInterval == 0 {
		cfg.KeepaliveInterval = time.Minute
	}
	return &Client{
		config: cfg,
		logger: logger.With("account", cfg.Account.ID),
		phase:  phaseDisconnected,
		events: make(chan *RawEmail, 64),
		stopCh: make(chan struct{}),
	}
}

// Messages returns the stream of fetched raw messages. The channel is
// closed after Run returns.
func (c *Client) Messages() <-chan *RawEmail {
	return c.events
}

// Connect opens the IMAP session. No-op if already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	if c.isStopped() {
		return fmt.Errorf("client stopped")
	}
	c.phase = phaseConnecting

	addr := c.config.Account.Addr()
	c.logger.Info("connecting to IMAP server", "server", addr)

	timeout := c.config.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}

	var imapClient *client.Client
	if c.config.Account.TLS {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, nil)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		imapClient, err = client.New(conn)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create IMAP client: %w", err)
		}
	} else {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		imapClient, err = client.New(conn)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create IMAP client: %w", err)
		}
	}

	if err := imapClient.Login(c.config.Account.Email, c.config.Account.Password); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	if _, err := imapClient.Select(c.config.Folder, false); err != nil {
		imapClient.Logout()
		return fmt.Errorf("failed to select %s: %w", c.config.Folder, err)
	}

	// Stop may have run while we were dialing; it saw a nil session, so the
	// logout is on us. We still hold mu, so Stop cannot race past this check.
	if c.isStopped() {
		imapClient.Logout()
		return fmt.Errorf("client stopped")
	}

	c.client = imapClient
	c.connected = true
	c.seen = make(map[uint32]struct{})
	c.phase = phaseReady
	c.logger.Info("connected to IMAP server")

	return nil
}

func (c *Client) isStopped() bool {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	return c.stopped
}

// Run drives the connect → backlog → watch cycle until Stop is called.
// Session-level failures schedule one reconnect after the configured delay;
// reconnecting repeats the full flow, backlog fetch included.
func (c *Client) Run(ctx context.Context) {
	defer close(c.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		if err := c.Connect(ctx); err != nil {
			c.logger.Error("connect failed", "error", err)
			c.handleDisconnect()
			if !c.sleep(ctx, c.config.ReconnectDelay) {
				return
			}
			continue
		}

		if err := c.fetchBacklog(ctx); err != nil {
			c.logger.Error("backlog fetch failed", "error", err)
			c.handleDisconnect()
			if !c.sleep(ctx, c.config.ReconnectDelay) {
				return
			}
			continue
		}

		if err := c.watch(ctx); err != nil {
			c.logger.Warn("watch ended", "error", err)
			c.handleDisconnect()
			if !c.sleep(ctx, c.config.ReconnectDelay) {
				return
			}
		}
	}
}

// fetchBacklog emits all messages received within the backlog window.
// Runs exactly once per connection lifetime, before watch mode.
func (c *Client) fetchBacklog(ctx context.Context) error {
	since := time.Now().Add(-c.config.BacklogWindow)
	c.logger.Info("fetching backlog", "since", since.Format(time.DateOnly))

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	return c.searchAndEmit(ctx, criteria)
}

// fetchUnseen emits currently-unread messages, used after a watch wakeup.
func (c *Client) fetchUnseen(ctx context.Context) error {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	return c.searchAndEmit(ctx, criteria)
}

// watch holds the folder open with IDLE, waking up on new-mail updates and
// on a roughly once-a-minute keepalive tick. Every wakeup re-selects the
// folder as a liveness probe, then fetches whatever is unread.
func (c *Client) watch(ctx context.Context) error {
	c.logger.Info("entering watch mode", "folder", c.config.Folder)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		default:
		}

		c.mu.Lock()
		if !c.connected || c.client == nil {
			c.mu.Unlock()
			return fmt.Errorf("not connected")
		}
		c.phase = phaseWatching
		watcher := newIdleWatcher(c.client, c.logger)
		c.mu.Unlock()

		updated, err := watcher.Wait(ctx, c.stopCh, c.config.KeepaliveInterval)
		if err != nil {
			return fmt.Errorf("idle failed: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		default:
		}

		// Keepalive folder re-check; some servers drop idle sessions silently.
		if err := c.reselect(); err != nil {
			return fmt.Errorf("folder recheck failed: %w", err)
		}

		if updated {
			c.logger.Debug("mailbox update received")
		}
		if err := c.fetchUnseen(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) reselect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.client == nil {
		return fmt.Errorf("not connected")
	}
	if _, err := c.client.Select(c.config.Folder, false); err != nil {
		return fmt.Errorf("failed to select %s: %w", c.config.Folder, err)
	}
	return nil
}

// searchAndEmit runs a UID search and fetches + emits every hit that has
// not already been emitted during this connection.
func (c *Client) searchAndEmit(ctx context.Context, criteria *imap.SearchCriteria) error {
	c.mu.Lock()
	if !c.connected || c.client == nil {
		c.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	imapClient := c.client
	c.mu.Unlock()

	uids, err := imapClient.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("failed to search: %w", err)
	}

	c.mu.Lock()
	fresh := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if _, ok := c.seen[uid]; !ok {
			fresh = append(fresh, uid)
		}
	}
	c.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(fresh...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 32)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.UidFetch(seqSet, items, messages)
	}()

	for msg := range messages {
		raw, err := c.parseMessage(msg, section)
		if err != nil {
			// A malformed message never aborts the batch.
			c.logger.Warn("failed to parse message", "uid", msg.Uid, "error", err)
			continue
		}
		c.emit(ctx, raw)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}

func (c *Client) emit(ctx context.Context, raw *RawEmail) {
	c.mu.Lock()
	if _, ok := c.seen[raw.UID]; ok {
		c.mu.Unlock()
		return
	}
	c.seen[raw.UID] = struct{}{}
	c.mu.Unlock()

	select {
	case c.events <- raw:
	case <-ctx.Done():
	case <-c.stopCh:
	}
}

// parseMessage parses an IMAP message into a RawEmail
func (c *Client) parseMessage(msg *imap.Message, section *imap.BodySectionName) (*RawEmail, error) {
	raw := &RawEmail{
		UID:    msg.Uid,
		SeqNum: msg.SeqNum,
	}

	if msg.Envelope != nil {
		raw.Subject = msg.Envelope.Subject
		raw.Date = msg.Envelope.Date
		raw.MessageID = msg.Envelope.MessageId

		if len(msg.Envelope.From) > 0 {
			raw.From = formatAddress(msg.Envelope.From[0])
		}
		for _, to := range msg.Envelope.To {
			raw.To = append(raw.To, to.Address())
		}
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return raw, nil
	}

	mr, err := mail.CreateReader(bodyReader)
	if err != nil {
		return raw, fmt.Errorf("failed to create mail reader: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.logger.Warn("failed to read part", "uid", msg.Uid, "error", err)
			break
		}

		if h, ok := part.Header.(*mail.InlineHeader); ok {
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/html"):
				raw.BodyHTML = string(body)
			case strings.HasPrefix(ct, "text/plain"):
				raw.BodyText = string(body)
			}
		}
	}

	return raw, nil
}

func formatAddress(addr *imap.Address) string {
	if addr == nil {
		return ""
	}
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, addr.Address())
	}
	return addr.Address()
}

// sleep waits for d unless the client is stopped first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	}
}

// handleDisconnect drops the session so the next Run iteration reconnects.
func (c *Client) handleDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.phase = phaseDisconnected
	if c.client != nil {
		c.client.Logout()
		c.client = nil
	}
}

// Stop requests graceful termination. No further events are emitted and no
// reconnect is scheduled after this call.
func (c *Client) Stop() {
	c.stopMu.Lock()
	if c.stopped {
		c.stopMu.Unlock()
		return
	}
	c.stopped = true
	c.stopMu.Unlock()

	close(c.stopCh)

	c.mu.Lock()
	imapClient := c.client
	c.client = nil
	c.connected = false
	c.mu.Unlock()

	if imapClient != nil {
		go func() {
			done := make(chan struct{})
			go func() {
				imapClient.Logout()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				imapClient.Terminate()
			}
		}()
	}
}

// Status reports the connection lifecycle phase for the status endpoint:
// disconnected, connecting, ready, watching, or stopped.
func (c *Client) Status() string {
	if c.isStopped() {
		return phaseStopped
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}
