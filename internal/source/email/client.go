package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"

	"github.com/nhle/goal-guardian/internal/source"
)

// Client implements source.MessageSource over IMAP.
type Client struct {
	cfg Config
}

// NewClient creates a new IMAP message source.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// Connect dials the IMAP server, authenticates, and selects the configured
// folder read-only. The caller must Close the returned session.
func (c *Client) Connect(
	ctx context.Context, address, password string,
) (source.Session, error) {
	addr := c.cfg.addr()
	timeout := c.cfg.timeout()

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, connectivityError("connecting to IMAP "+addr, err)
	}

	options := &imapclient.Options{
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	}

	var client *imapclient.Client
	if c.cfg.TLS {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: c.cfg.Host})
		hsCtx, cancel := context.WithTimeout(ctx, timeout)
		err = tlsConn.HandshakeContext(hsCtx)
		cancel()
		if err != nil {
			conn.Close()
			return nil, connectivityError("TLS handshake with "+addr, err)
		}
		client = imapclient.New(tlsConn, options)
		conn = tlsConn
	} else {
		options.TLSConfig = &tls.Config{ServerName: c.cfg.Host}
		client, err = imapclient.NewStartTLS(conn, options)
		if err != nil {
			conn.Close()
			return nil, connectivityError("STARTTLS with "+addr, err)
		}
	}

	sess := &session{
		client:  client,
		conn:    conn,
		timeout: timeout,
	}

	err = sess.do(ctx, func() error {
		return client.Login(address, password).Wait()
	})
	if err != nil {
		sess.Close()
		var imapErr *imap.Error
		if errors.As(err, &imapErr) {
			return nil, &source.AuthError{
				Address: address,
				Message: imapErr.Text,
			}
		}
		return nil, connectivityError("logging in to "+addr, err)
	}

	folder := c.cfg.folder()
	err = sess.do(ctx, func() error {
		_, err := client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
		return err
	})
	if err != nil {
		sess.Close()
		return nil, connectivityError("selecting "+folder, err)
	}

	return sess, nil
}

// session is an authenticated IMAP connection with a selected folder.
type session struct {
	client    *imapclient.Client
	conn      net.Conn
	timeout   time.Duration
	closeOnce sync.Once
}

// do runs fn with a connection deadline derived from the round-trip timeout
// and ctx. Cancelling ctx expires the deadline immediately so a blocked
// command returns.
func (s *session) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetDeadline(deadline); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	err := fn()
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

// Search runs UID SEARCH with the given criteria.
func (s *session) Search(
	ctx context.Context, c source.Criteria,
) (*source.Handles, error) {
	criteria := &imap.SearchCriteria{}
	if !c.Since.IsZero() {
		criteria.Since = c.Since
	}
	if c.SenderPattern != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key:   "From",
			Value: c.SenderPattern,
		})
	}

	var data *imap.SearchData
	err := s.do(ctx, func() error {
		var err error
		data, err = s.client.UIDSearch(criteria, nil).Wait()
		return err
	})
	if err != nil {
		return nil, connectivityError("searching messages", err)
	}

	uids := data.AllUIDs()
	handles := make([]source.Handle, len(uids))
	for i, uid := range uids {
		handles[i] = source.Handle(uid)
	}
	return source.NewHandles(handles...), nil
}

// FetchBody fetches the full message with BODY.PEEK (leaving the \Seen
// flag untouched) and returns its text content.
func (s *session) FetchBody(
	ctx context.Context, h source.Handle,
) (string, error) {
	uidSet := imap.UIDSetNum(imap.UID(h))
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	var raw []byte
	var found bool
	err := s.do(ctx, func() error {
		fetchCmd := s.client.Fetch(uidSet, fetchOpts)
		defer fetchCmd.Close()

		msg := fetchCmd.Next()
		if msg != nil {
			found = true
			buf, err := msg.Collect()
			if err != nil {
				return err
			}
			raw = buf.FindBodySection(bodySection)
		}

		return fetchCmd.Close()
	})
	if err != nil {
		return "", fetchError(h, err)
	}
	if !found {
		return "", &source.FetchError{Handle: h, Err: errors.New("message not found")}
	}
	if raw == nil {
		return "", &source.FetchError{Handle: h, Err: errors.New("empty body section")}
	}

	return messageText(raw), nil
}

// Close logs out and closes the connection. Subsequent calls are no-ops.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.SetDeadline(time.Now().Add(s.timeout))
		_ = s.client.Logout().Wait()
		err = s.client.Close()
	})
	return err
}

// connectivityError wraps err as a session-wide failure.
func connectivityError(op string, err error) error {
	return &source.ConnectivityError{
		Op:      op,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

// fetchError classifies a fetch failure: a server NO/BAD response only
// affects that message, anything else breaks the session.
func fetchError(h source.Handle, err error) error {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		return &source.FetchError{Handle: h, Err: err}
	}
	return connectivityError(fmt.Sprintf("fetching message %d", h), err)
}

// isTimeout reports whether err is a deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
