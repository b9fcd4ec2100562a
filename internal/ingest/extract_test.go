package ingest

import "testing"

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		none bool
	}{
		{name: "dollar symbol", text: "You were charged $12.99 today", want: 12.99},
		{name: "dollar with space", text: "Total: $ 9.99", want: 9.99},
		{name: "usd code prefix", text: "USD 15.49 was billed", want: 15.49},
		{name: "usd code suffix", text: "15.49 USD was billed", want: 15.49},
		{name: "dollars word", text: "You paid 20 dollars", want: 20},
		{name: "naira with thousands", text: "Payment reminder: ₦57,000 due", want: 57000},
		{name: "ngn code", text: "NGN 57,000.00 charged", want: 57000},
		{name: "pound", text: "£9.99 for your plan", want: 9.99},
		{name: "euro", text: "€12.00 billed monthly", want: 12},
		{name: "total label", text: "total: 45.50", want: 45.50},
		{name: "amount label", text: "Amount: $23.00", want: 23},
		{name: "too small", text: "charged $0.00", none: true},
		{name: "too large", text: "$99,999,999.00 invoice", none: true},
		{name: "no amount", text: "your subscription renews soon", none: true},
		{name: "plain number ignored", text: "order 12345 confirmed", none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAmount(tt.text)
			if tt.none {
				if got != nil {
					t.Fatalf("ExtractAmount(%q) = %v, want nil", tt.text, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractAmount(%q) = nil, want %v", tt.text, tt.want)
			}
			if *got != tt.want {
				t.Errorf("ExtractAmount(%q) = %v, want %v", tt.text, *got, tt.want)
			}
		})
	}
}

func TestExtractCurrency(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"₦57,000 due", "NGN"},
		{"NGN 57000", "NGN"},
		{"naira payment", "NGN"},
		{"£9.99", "GBP"},
		{"GBP 9.99", "GBP"},
		{"€12.00", "EUR"},
		{"EUR 12", "EUR"},
		{"¥1200", "JPY"},
		{"JPY 1200", "JPY"},
		{"CAD 15.00", "CAD"},
		{"$12.99", "USD"},
		{"no currency here", "USD"},
	}

	for _, tt := range tests {
		if got := ExtractCurrency(tt.text); got != tt.want {
			t.Errorf("ExtractCurrency(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractMerchant(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{name: "display name", from: `"Netflix" <info@mailer.netflix.com>`, want: "Netflix"},
		{name: "unquoted display name", from: `Spotify <no-reply@spotify.com>`, want: "Spotify"},
		{name: "bare mailbox name falls to domain", from: `billing <billing@mailer.netflix.com>`, want: "Netflix"},
		{name: "domain second-to-last segment", from: `<receipts@billing.openai.com>`, want: "Openai"},
		{name: "plain address", from: `noreply@starlink.com`, want: "Starlink"},
		{name: "single segment domain", from: `admin@localhost`, want: "Localhost"},
		{name: "no address at all", from: `mystery sender`, want: "mystery sender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMerchant(tt.from); got != tt.want {
				t.Errorf("ExtractMerchant(%q) = %q, want %q", tt.from, got, tt.want)
			}
		})
	}
}

func TestDetectedKeywords(t *testing.T) {
	got := DetectedKeywords("Your Netflix receipt", "You were charged for your subscription renewal")
	want := map[string]bool{"receipt": true, "subscription": true, "charged": true, "renewal": true}
	if len(got) != len(want) {
		t.Fatalf("DetectedKeywords = %v, want %d keywords", got, len(want))
	}
	for _, kw := range got {
		if !want[kw] {
			t.Errorf("unexpected keyword %q", kw)
		}
	}

	if got := DetectedKeywords("hello", "world"); len(got) != 0 {
		t.Errorf("DetectedKeywords on plain text = %v, want empty", got)
	}
}

func TestSignals(t *testing.T) {
	if !HasSubscriptionSignal("Your plan will auto-renew on the next billing cycle") {
		t.Error("expected subscription signal")
	}
	if HasSubscriptionSignal("see you at the meetup") {
		t.Error("unexpected subscription signal")
	}
	if !IsExcluded("Special offer: 50% off with promo code SAVE") {
		t.Error("expected exclusion")
	}
	if !IsCancellation("Your subscription has been cancelled, sorry to see you go") {
		t.Error("expected cancellation signal")
	}
	if IsCancellation("Your subscription renews tomorrow") {
		t.Error("unexpected cancellation signal")
	}
}
