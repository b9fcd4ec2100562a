package ingest

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/responses"
)

const gmailAllMail = "[Gmail]/All Mail"

// Mailbox abstracts the IMAP operations the scanner needs, so scans can
// be driven against a fake in tests.
type Mailbox interface {
	// SearchSubscriptions returns message ids from the provider's
	// subscription category, when one exists.
	SearchSubscriptions(since time.Time) ([]uint32, error)
	// SearchKeyword returns inbox message ids whose subject contains the keyword.
	SearchKeyword(since time.Time, keyword string) ([]uint32, error)
	// Fetch streams raw message bytes for each id to fn.
	Fetch(ids []uint32, fn func(id uint32, raw []byte) error) error
	Logout() error
}

// GmailMailbox talks to Gmail over IMAP with an app password.
type GmailMailbox struct {
	c *client.Client
}

// DialGmail connects and authenticates against an IMAP endpoint.
func DialGmail(addr, username, password string) (*GmailMailbox, error) {
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	if err := c.Login(username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return &GmailMailbox{c: c}, nil
}

// xGmRawSearch issues a SEARCH with Gmail's X-GM-RAW extension, which
// exposes Gmail's own query syntax (categories, after:) over IMAP.
type xGmRawSearch struct {
	query string
}

func (s *xGmRawSearch) Command() *imap.Command {
	return &imap.Command{
		Name:      "SEARCH",
		Arguments: []interface{}{imap.RawString("X-GM-RAW"), s.query},
	}
}

func (m *GmailMailbox) SearchSubscriptions(since time.Time) ([]uint32, error) {
	if _, err := m.c.Select(gmailAllMail, true); err != nil {
		return nil, fmt.Errorf("selecting %q: %w", gmailAllMail, err)
	}

	query := fmt.Sprintf("category:subscriptions after:%s", since.Format("2006/01/02"))
	res := new(responses.Search)
	status, err := m.c.Execute(&xGmRawSearch{query: query}, res)
	if err != nil {
		return nil, fmt.Errorf("X-GM-RAW search: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("X-GM-RAW search: %w", err)
	}
	return res.Ids, nil
}

func (m *GmailMailbox) SearchKeyword(since time.Time, keyword string) ([]uint32, error) {
	if _, err := m.c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	criteria.Header.Add("Subject", keyword)
	ids, err := m.c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching subject %q: %w", keyword, err)
	}
	return ids, nil
}

func (m *GmailMailbox) Fetch(ids []uint32, fn func(id uint32, raw []byte) error) error {
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.c.Fetch(seqset, items, messages)
	}()

	var fnErr error
	for msg := range messages {
		if fnErr != nil {
			continue // drain the channel so the fetch goroutine can finish
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			continue
		}
		fnErr = fn(msg.SeqNum, raw)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}
	return fnErr
}

func (m *GmailMailbox) Logout() error {
	return m.c.Logout()
}
