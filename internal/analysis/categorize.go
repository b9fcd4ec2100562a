package analysis

import "strings"

// categoryRule maps merchant-name keywords to a category label.
type categoryRule struct {
	keywords []string
	label    string
}

// categoryRules is evaluated top to bottom and the first matching rule wins.
// Order is significant: keywords can plausibly overlap across categories
// ("apple tv" must hit Streaming Video before "apple music" territory), so
// the earlier rule is the documented tie-break.
var categoryRules = []categoryRule{
	{[]string{"openai", "anthropic", "claude", "gemini", "copilot", "midjourney", "jasper", "writesonic", "perplexity"}, "AI Tools"},
	{[]string{"netflix", "hulu", "disney", "hbo", "max", "peacock", "paramount", "apple tv", "prime video", "crunchyroll"}, "Streaming Video"},
	{[]string{"spotify", "apple music", "tidal", "deezer", "pandora", "youtube music", "soundcloud"}, "Music Streaming"},
	{[]string{"github", "gitlab", "jira", "confluence", "notion", "linear", "asana", "trello", "basecamp", "monday"}, "Dev / Project Mgmt"},
	{[]string{"dropbox", "google one", "icloud", "onedrive", "box", "backblaze", "carbonite"}, "Cloud Storage"},
	{[]string{"adobe", "figma", "canva", "sketch", "invision", "procreate"}, "Design Tools"},
	{[]string{"aws", "gcp", "azure", "digitalocean", "vercel", "netlify", "heroku", "render", "railway"}, "Cloud Hosting"},
	{[]string{"zoom", "slack", "teams", "webex", "meet", "loom"}, "Communication"},
	{[]string{"nytimes", "washington post", "wsj", "medium", "substack", "economist", "bloomberg"}, "News / Media"},
	{[]string{"shopify", "squarespace", "wix", "wordpress", "webflow"}, "Website Builders"},
	{[]string{"duolingo", "masterclass", "coursera", "udemy", "pluralsight", "linkedin learning"}, "Education"},
	{[]string{"grammarly", "hemingway", "prowritingaid"}, "Writing Tools"},
	{[]string{"1password", "lastpass", "dashlane", "bitwarden", "nordpass"}, "Password Managers"},
	{[]string{"nordvpn", "expressvpn", "surfshark", "mullvad", "protonvpn"}, "VPN"},
	{[]string{"xero", "quickbooks", "freshbooks", "wave", "bench"}, "Accounting"},
}

// CategoryOther is the sentinel bucket for merchants no rule matches.
// Overlap detection skips it: the bucket is too heterogeneous to compare.
const CategoryOther = "Other"

// Categorize assigns a category to a free-text merchant name. Matching is
// case-insensitive substring search; the function is total and never fails.
func Categorize(merchant string) string {
	lower := strings.ToLower(merchant)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return CategoryOther
}
