package analysis

import "strings"

// cancellationLinks maps merchant-name keywords to the provider's direct
// cancellation or billing page.
var cancellationLinks = map[string]string{
	"netflix":      "https://www.netflix.com/cancel",
	"spotify":      "https://www.spotify.com/account/subscription/",
	"hulu":         "https://secure.hulu.com/account/cancel",
	"disney":       "https://www.disneyplus.com/account",
	"hbo":          "https://www.max.com/account",
	"max":          "https://www.max.com/account",
	"peacock":      "https://www.peacocktv.com/account",
	"paramount":    "https://www.paramountplus.com/account/",
	"apple tv":     "https://support.apple.com/en-us/118428",
	"apple music":  "https://support.apple.com/en-us/118428",
	"apple":        "https://appleid.apple.com/account/manage",
	"youtube":      "https://youtube.com/paid_memberships",
	"amazon":       "https://www.amazon.com/mc/pipelines/cancellation",
	"tidal":        "https://listen.tidal.com/account/subscription",
	"deezer":       "https://www.deezer.com/en/account/premium-subscription",
	"openai":       "https://platform.openai.com/account/billing",
	"anthropic":    "https://console.anthropic.com/settings/billing",
	"claude":       "https://console.anthropic.com/settings/billing",
	"gemini":       "https://one.google.com/about",
	"midjourney":   "https://www.midjourney.com/account/",
	"perplexity":   "https://www.perplexity.ai/settings",
	"grammarly":    "https://account.grammarly.com/subscription",
	"notion":       "https://www.notion.so/profile/plans",
	"github":       "https://github.com/settings/billing",
	"gitlab":       "https://gitlab.com/-/profile/billing",
	"jira":         "https://admin.atlassian.com/",
	"confluence":   "https://admin.atlassian.com/",
	"asana":        "https://app.asana.com/-/account_api",
	"trello":       "https://trello.com/billing",
	"monday":       "https://auth.monday.com/login",
	"linear":       "https://linear.app/settings/subscription",
	"dropbox":      "https://www.dropbox.com/account/plan",
	"google one":   "https://one.google.com/about",
	"adobe":        "https://account.adobe.com/plans",
	"figma":        "https://www.figma.com/settings",
	"canva":        "https://www.canva.com/settings/plans-and-billing",
	"zoom":         "https://zoom.us/billing",
	"slack":        "https://slack.com/intl/en-us/help/articles/204369004",
	"nordvpn":      "https://my.nordaccount.com/subscription/",
	"expressvpn":   "https://www.expressvpn.com/subscriptions",
	"surfshark":    "https://my.surfshark.com/subscriptions",
	"1password":    "https://my.1password.com/profile",
	"lastpass":     "https://lastpass.com/",
	"dashlane":     "https://app.dashlane.com/login",
	"bitwarden":    "https://vault.bitwarden.com/",
	"shopify":      "https://admin.shopify.com/settings/billing",
	"squarespace":  "https://account.squarespace.com/subscriptions",
	"wordpress":    "https://wordpress.com/purchases",
	"webflow":      "https://webflow.com/account",
	"wix":          "https://manage.wix.com/premium-purchase-plan/dynamo",
	"duolingo":     "https://www.duolingo.com/settings",
	"coursera":     "https://www.coursera.org/account-profile#subscriptions",
	"udemy":        "https://www.udemy.com/dashboard/subscription",
	"masterclass":  "https://www.masterclass.com/account/subscription",
	"linkedin":     "https://www.linkedin.com/premium/manage/cancel",
	"nytimes":      "https://www.nytimes.com/subscription",
	"medium":       "https://medium.com/me/membership",
	"substack":     "https://substack.com/settings",
	"bloomberg":    "https://www.bloomberg.com/account/",
	"xero":         "https://go.xero.com/Settings/Subscription",
	"quickbooks":   "https://accounts.intuit.com/",
	"vercel":       "https://vercel.com/account/billing",
	"netlify":      "https://app.netlify.com/teams/user/billing/subscriptions",
	"digitalocean": "https://cloud.digitalocean.com/account/billing",
	"heroku":       "https://dashboard.heroku.com/account/billing",
	"starlink":     "https://www.starlink.com/account",
	"microsoft":    "https://account.microsoft.com/services/",
	"google":       "https://myaccount.google.com/payments-and-subscriptions",
	"patreon":      "https://www.patreon.com/settings/memberships",
	"twitch":       "https://www.twitch.tv/settings/prime",
	"loom":         "https://www.loom.com/account",
}

// CancellationLink returns the direct cancellation URL for a merchant, if a
// keyword matches. The longest matching keyword wins so "apple music" beats
// "apple". ok is false when no keyword matches; callers typically fall back
// to a web search URL.
func CancellationLink(merchant string) (url string, ok bool) {
	lower := strings.ToLower(merchant)
	var bestKw, bestURL string
	for kw, u := range cancellationLinks {
		if strings.Contains(lower, kw) && len(kw) > len(bestKw) {
			bestKw, bestURL = kw, u
		}
	}
	return bestURL, bestURL != ""
}
