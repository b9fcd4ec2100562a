package ingest

import "strings"

// SearchKeywords drive the mailbox search and are recorded on each
// stored record as provenance.
var SearchKeywords = []string{
	"receipt", "invoice", "subscription", "payment",
	"charged", "billing", "renewal",
}

// subscriptionSignals must match at least once for an email to be
// treated as a real recurring charge.
var subscriptionSignals = []string{
	"subscription", "your plan", "membership",
	"billed monthly", "billed annually", "billed yearly",
	"auto-renew", "auto renew", "renewal", "recurring",
	"billing cycle", "next billing", "next charge",
	"monthly charge", "annual charge", "yearly charge",
	"cancel anytime", "your invoice", "your receipt",
	"payment confirmation", "payment receipt",
	"charged for", "your account has been charged",
	"payment reminder", "automatic payment", "payment failed",
	"payment due", "payment unsuccessful", "past due",
	"service fee", "service charge",
}

// exclusionSignals mark promotional, shipping and other
// non-subscription emails that would otherwise slip through.
var exclusionSignals = []string{
	"[test mode]", "test mode", "test payment",
	"% off", "save up to", "special offer", "limited time",
	"sale ends", "promo code", "discount code", "coupon",
	"has shipped", "shipping confirmation", "your order has",
	"order confirmation", "order #", "tracking number",
	"refund", "return merchandise",
	"newsletter", "unsubscribe from our list",
	"you've earned", "cashback", "reward points",
	"7 days left", "days remaining to submit",
	"hackathon", "pr run failed", "build failed", "pipeline failed",
	"charged $0.00", "charged ₦0.00", " $0.00 ",
	"payment of 0.00",
}

// cancellationSignals identify cancellation confirmations, which are
// stored even when no amount can be extracted.
var cancellationSignals = []string{
	"subscription cancelled", "subscription has been cancelled",
	"subscription has ended", "subscription ended",
	"you've cancelled", "you have cancelled",
	"cancellation confirmed", "cancellation confirmation",
	"your cancellation", "cancelled your subscription",
	"membership cancelled", "membership ended",
	"plan cancelled", "plan has been cancelled",
	"we're sorry to see you go", "sorry to see you go",
	"your account has been closed", "service has been cancelled",
}

func containsAny(lower string, signals []string) bool {
	for _, sig := range signals {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// IsCancellation reports whether the text reads as a cancellation confirmation.
func IsCancellation(text string) bool {
	return containsAny(strings.ToLower(text), cancellationSignals)
}

// HasSubscriptionSignal reports whether the text carries a recurring-charge signal.
func HasSubscriptionSignal(text string) bool {
	return containsAny(strings.ToLower(text), subscriptionSignals)
}

// IsExcluded reports whether the text matches a promotional or
// transactional pattern that disqualifies it.
func IsExcluded(text string) bool {
	return containsAny(strings.ToLower(text), exclusionSignals)
}

// DetectedKeywords returns which SearchKeywords appear in the subject or body.
func DetectedKeywords(subject, body string) []string {
	combined := strings.ToLower(subject + " " + body)
	found := []string{}
	for _, kw := range SearchKeywords {
		if strings.Contains(combined, kw) {
			found = append(found, kw)
		}
	}
	return found
}
