package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"subtrack/internal/core"
)

const (
	minAmount = 0.01
	maxAmount = 9_999_999
)

// amountPatterns are tried in order; the first plausible match wins.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)USD\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)([\d,]+(?:\.\d{2})?)\s?USD`),
	regexp.MustCompile(`(?i)([\d,]+(?:\.\d{2})?)\s?dollars?`),
	regexp.MustCompile(`(?i)₦\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)NGN\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)([\d,]+(?:\.\d{2})?)\s?NGN`),
	regexp.MustCompile(`(?i)£\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)GBP\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)€\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)EUR\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)total[:\s]+\$?\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)amount[:\s]+\$?\s?([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)charged[:\s]+\$?\s?([\d,]+(?:\.\d{2})?)`),
}

var (
	nairaPattern   = regexp.MustCompile(`(?i)₦|\bNGN\b|naira`)
	poundPattern   = regexp.MustCompile(`£|\bGBP\b`)
	euroPattern    = regexp.MustCompile(`€|\bEUR\b`)
	yenPattern     = regexp.MustCompile(`¥|\bJPY\b|\bCNY\b`)
	cadPattern     = regexp.MustCompile(`\bCAD\b`)
	displayName    = regexp.MustCompile(`^"?([^"<]+)"?\s*<`)
	bareLocalPart  = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+$`)
	senderDomain   = regexp.MustCompile(`@([\w.\-]+)>?`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// ExtractAmount returns the first plausible charge amount found in text.
// Returns nil when nothing in the accepted range is present.
func ExtractAmount(text string) *float64 {
	for _, pattern := range amountPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		raw := strings.ReplaceAll(match[1], ",", "")
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if val >= minAmount && val <= maxAmount {
			rounded := core.Round2(val)
			return &rounded
		}
	}
	return nil
}

// ExtractCurrency detects the currency from symbols or codes; defaults to USD.
func ExtractCurrency(text string) string {
	switch {
	case nairaPattern.MatchString(text):
		return "NGN"
	case poundPattern.MatchString(text):
		return "GBP"
	case euroPattern.MatchString(text):
		return "EUR"
	case yenPattern.MatchString(text):
		return "JPY"
	case cadPattern.MatchString(text):
		return "CAD"
	default:
		return "USD"
	}
}

// ExtractMerchant derives a merchant name from a From header. The display
// name wins when it is not just a bare mailbox name; otherwise the
// registerable part of the sender domain is capitalized and used.
func ExtractMerchant(fromHeader string) string {
	if match := displayName.FindStringSubmatch(fromHeader); match != nil {
		name := strings.Trim(strings.TrimSpace(match[1]), `"`)
		if name != "" && !bareLocalPart.MatchString(name) {
			return name
		}
	}

	if match := senderDomain.FindStringSubmatch(fromHeader); match != nil {
		domain := strings.ToLower(match[1])
		parts := strings.Split(domain, ".")
		if len(parts) >= 2 {
			return capitalize(parts[len(parts)-2])
		}
		return capitalize(parts[0])
	}

	if len(fromHeader) > 40 {
		return fromHeader[:40]
	}
	return fromHeader
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// stripHTML reduces an HTML body to collapsed plain text.
func stripHTML(raw string) string {
	text := htmlTagPattern.ReplaceAllString(raw, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
