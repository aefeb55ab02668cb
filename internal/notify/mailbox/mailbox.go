// Package mailbox displays notifications by appending a composed reminder
// mail to an IMAP mailbox, so reminders show up in any mail client.
package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/taskflow/internal/notify"
)

// Config locates the mailbox.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}

// Notifier appends one message per notification.
type Notifier struct {
	cfg Config
	now func() time.Time
}

// New creates a mailbox notifier.
func New(cfg Config) *Notifier {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Notifier{cfg: cfg, now: time.Now}
}

// RequestPermission checks the credentials by logging in once.
func (n *Notifier) RequestPermission(ctx context.Context) (notify.Permission, error) {
	client, err := n.connect(ctx)
	if err != nil {
		return notify.PermissionDenied, err
	}
	_ = client.Logout().Wait()
	return notify.PermissionGranted, nil
}

// Show appends d to the configured mailbox. Overdue notifications are
// flagged.
func (n *Notifier) Show(ctx context.Context, d notify.Display) error {
	msg, err := n.compose(d)
	if err != nil {
		return err
	}

	client, err := n.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	opts := &imap.AppendOptions{Time: n.now()}
	if d.RequireInteraction {
		opts.Flags = []imap.Flag{imap.FlagFlagged}
	}

	cmd := client.Append(n.cfg.Mailbox, int64(len(msg)), opts)
	if _, err := cmd.Write(msg); err != nil {
		return fmt.Errorf("writing message to %s: %w", n.cfg.Mailbox, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", n.cfg.Mailbox, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", n.cfg.Mailbox, err)
	}
	return nil
}

// connect dials and authenticates. The caller must log out.
func (n *Notifier) connect(_ context.Context) (*imapclient.Client, error) {
	addr := n.cfg.Host + ":" + n.cfg.Port

	var client *imapclient.Client
	var err error
	if n.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(n.cfg.Username, n.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", n.cfg.Username, err)
	}
	return client, nil
}

// compose renders d as a plain-text RFC 5322 message addressed to the
// mailbox owner.
func (n *Notifier) compose(d notify.Display) ([]byte, error) {
	self := []*mail.Address{{Name: "taskflow", Address: n.cfg.Username}}

	var h mail.Header
	h.SetDate(n.now())
	h.SetAddressList("From", self)
	h.SetAddressList("To", self)
	h.SetSubject(d.Title)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if d.Tag != "" {
		h.Set("X-Taskflow-Tag", d.Tag)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	body := d.Body
	if body == "" {
		body = d.Title
	}
	if _, err := io.WriteString(w, strings.TrimRight(body, "\n")+"\r\n"); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing message: %w", err)
	}
	return buf.Bytes(), nil
}
