package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"subtrack/internal/core"
)

const bodySnippetChars = 500

// ParseMessage turns a raw RFC 822 email into a charge record. A nil
// record with a nil error means the email was filtered out: no amount,
// no subscription signal, or a promotional pattern matched.
// Cancellation confirmations are kept even without an amount.
func ParseMessage(raw []byte, uid string, now time.Time) (*core.ChargeRecord, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("reading message %s: %w", uid, err)
	}

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}
	fromHeader := mr.Header.Get("From")

	dateStr := now.Format(core.DateLayout)
	if parsed, err := mr.Header.Date(); err == nil && !parsed.IsZero() {
		dateStr = parsed.Format(core.DateLayout)
	}

	body := bodySnippet(mr)
	combined := subject + " " + body

	amount := ExtractAmount(combined)
	currency := ExtractCurrency(combined)
	merchant := ExtractMerchant(fromHeader)
	keywords := DetectedKeywords(subject, body)

	status := core.StatusActive
	if IsCancellation(combined) {
		status = core.StatusCancelled
	} else {
		if amount == nil {
			return nil, nil
		}
		if !HasSubscriptionSignal(combined) {
			return nil, nil
		}
		if IsExcluded(combined) {
			return nil, nil
		}
	}

	return &core.ChargeRecord{
		ID:               core.RecordID(uid, fromHeader),
		Merchant:         merchant,
		Amount:           amount,
		Currency:         currency,
		Date:             dateStr,
		Status:           status,
		Subject:          truncate(subject, 200),
		SourceEmail:      truncate(fromHeader, 200),
		DetectedKeywords: keywords,
		ParsedAt:         now.UTC().Format(time.RFC3339),
	}, nil
}

// bodySnippet extracts a short plain-text excerpt from the message body,
// preferring text/plain parts and falling back to stripped HTML.
func bodySnippet(mr *mail.Reader) string {
	var htmlFallback string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ctype, _, err := header.ContentType()
		if err != nil {
			continue
		}

		content, err := io.ReadAll(io.LimitReader(part.Body, 64*1024))
		if err != nil {
			continue
		}

		switch ctype {
		case "text/plain":
			return truncate(strings.TrimSpace(string(content)), bodySnippetChars)
		case "text/html":
			if htmlFallback == "" {
				htmlFallback = stripHTML(string(content))
			}
		}
	}

	return truncate(htmlFallback, bodySnippetChars)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
