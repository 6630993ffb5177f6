// Package notes reads and writes iCloud Notes over IMAP. iCloud exposes
// notes as messages in a "Notes" mailbox on imap.mail.me.com, authenticated
// with an app-specific password rather than the web session.
package notes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/google/uuid"
	"github.com/k3a/html2text"

	"github.com/jfarrell/icloud-cli/internal/sync"
)

const (
	// Server is the iCloud IMAP endpoint.
	Server = "imap.mail.me.com:993"
	// Mailbox holds the notes on the iCloud side.
	Mailbox = "Notes"
)

// ErrNoCredentials indicates IMAP access has not been configured.
var ErrNoCredentials = errors.New("imap credentials not configured")

// Note is one note in display form.
type Note struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Size    uint32 `json:"size"`
	Body    string `json:"body,omitempty"`
}

// Credentials authenticate the IMAP session.
type Credentials struct {
	Username string
	Password string
}

// CredentialsFunc supplies credentials on demand. Implementations return
// ErrNoCredentials when none have been stored.
type CredentialsFunc func() (Credentials, error)

// conn is the slice of the IMAP client the service uses.
type conn interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	Append(mbox string, flags []string, date time.Time, msg imap.Literal) error
	Logout() error
}

// Service provides notes operations. Each call opens a fresh session and
// logs out when done.
type Service struct {
	creds CredentialsFunc
	dial  func(addr string) (conn, error)
}

func New(creds CredentialsFunc) *Service {
	return &Service{
		creds: creds,
		dial: func(addr string) (conn, error) {
			return client.DialTLS(addr, nil)
		},
	}
}

func (s *Service) connect(ctx context.Context) (conn, Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, Credentials{}, err
	}
	creds, err := s.creds()
	if err != nil {
		return nil, Credentials{}, err
	}

	c, err := s.dial(Server)
	if err != nil {
		return nil, Credentials{}, fmt.Errorf("connect to %s: %w", Server, err)
	}
	if err := c.Login(creds.Username, creds.Password); err != nil {
		c.Logout()
		return nil, Credentials{}, fmt.Errorf("imap login: %w", err)
	}
	return c, creds, nil
}

// List returns all notes, newest first, without bodies.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	c, _, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select(Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", Mailbox, err)
	}
	if mbox.Messages == 0 {
		return []Note{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(1, mbox.Messages)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchRFC822Size}
	ch := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, ch)
	}()

	var notes []Note
	for msg := range ch {
		notes = append(notes, noteFromMessage(msg))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch notes: %w", err)
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].Date > notes[j].Date })
	return notes, nil
}

// Show returns one note including its body rendered as plain text.
func (s *Service) Show(ctx context.Context, id string) (*Note, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid note id %q", id)
	}

	c, _, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(Mailbox, true); err != nil {
		return nil, fmt.Errorf("select %s: %w", Mailbox, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchRFC822Size, section.FetchItem()}
	ch := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var found *Note
	for msg := range ch {
		n := noteFromMessage(msg)
		n.Body = bodyText(msg.GetBody(section))
		found = &n
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch note: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("note %s not found", id)
	}
	return found, nil
}

// Add creates a note with the given subject and body.
func (s *Service) Add(ctx context.Context, subject, body string) error {
	c, creds, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Logout()

	now := time.Now()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", creds.Username)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "X-Uniform-Type-Identifier: com.apple.mail-note\r\n")
	fmt.Fprintf(&buf, "X-Universally-Unique-Identifier: %s\r\n", uuid.NewString())
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n")
	fmt.Fprintf(&buf, "\r\n%s\r\n", body)

	if err := c.Append(Mailbox, nil, now, &buf); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Search returns notes whose subject or body matches the query.
func (s *Service) Search(ctx context.Context, query string) ([]Note, error) {
	c, _, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select(Mailbox, true); err != nil {
		return nil, fmt.Errorf("select %s: %w", Mailbox, err)
	}

	subject := imap.NewSearchCriteria()
	subject.Header.Add("Subject", query)
	text := imap.NewSearchCriteria()
	text.Text = []string{query}

	criteria := imap.NewSearchCriteria()
	criteria.Or = [][2]*imap.SearchCriteria{{subject, text}}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	if len(uids) == 0 {
		return []Note{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchRFC822Size}
	ch := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var notes []Note
	for msg := range ch {
		notes = append(notes, noteFromMessage(msg))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch notes: %w", err)
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].Date > notes[j].Date })
	return notes, nil
}

func noteFromMessage(msg *imap.Message) Note {
	n := Note{
		ID:   strconv.FormatUint(uint64(msg.Uid), 10),
		Size: msg.Size,
	}
	if env := msg.Envelope; env != nil {
		n.Subject = env.Subject
		if !env.Date.IsZero() {
			n.Date = env.Date.UTC().Format("2006-01-02 15:04")
		}
	}
	if n.Subject == "" {
		n.Subject = "Untitled"
	}
	return n
}

// bodyText extracts the note body from a raw message and strips any HTML.
func bodyText(lit imap.Literal) string {
	if lit == nil {
		return ""
	}
	msg, err := mail.ReadMessage(lit)
	if err != nil {
		return ""
	}
	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return ""
	}

	body := strings.TrimSpace(string(raw))
	ctype := msg.Header.Get("Content-Type")
	if ctype != "" {
		if mediaType, _, err := mime.ParseMediaType(ctype); err == nil && mediaType == "text/html" {
			return strings.TrimSpace(html2text.HTML2Text(body))
		}
	}
	if strings.Contains(body, "<") && strings.Contains(body, ">") {
		return strings.TrimSpace(html2text.HTML2Text(body))
	}
	return body
}

// Adapter exposes notes to the sync orchestrator. Without stored IMAP
// credentials the domain is skipped, not failed.
type Adapter struct {
	svc *Service
}

func NewAdapter(svc *Service) *Adapter {
	return &Adapter{svc: svc}
}

func (a *Adapter) Domain() string { return "notes" }

func (a *Adapter) Sync(ctx context.Context) ([]sync.Record, error) {
	items, err := a.svc.List(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, fmt.Errorf("%w: run notes setup-imap first", sync.ErrSkipped)
		}
		return nil, err
	}

	records := make([]sync.Record, 0, len(items))
	for _, n := range items {
		records = append(records, sync.Record{
			"id":      n.ID,
			"subject": n.Subject,
			"date":    n.Date,
			"size":    n.Size,
		})
	}
	return records, nil
}
