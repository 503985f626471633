package newsletter

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Hardcoded fallbacks used when neither Ghost nor the site configuration
// provides a value. They match Ghost's default email styling.
const (
	DefaultAccentColor     = "#2b546d"
	DefaultTextColor       = "#15212A"
	DefaultLightTextColor  = "#738a94"
	DefaultBackgroundColor = "#ffffff"
	DefaultBorderColor     = "#e0e7eb"
	DefaultFontCategory    = "sans_serif"
	DefaultTitleAlignment  = "center"
	DefaultNewsletterName  = "Newsletter"
	DefaultPostTitle       = "Untitled"

	PublishDateLayout = "January 02, 2006"
	unsubscribePath   = "/#/portal/account/newsletters"
	archivePath       = "/newsletters"
)

// Keys lists every variable the email template may reference. Resolve always
// populates all of them.
var Keys = []string{
	"accent_color", "brand_color", "primary_color", "secondary_color",
	"text_color", "light_text_color", "background_color", "border_color",
	"newsletter_title", "author_name", "newsletter_name", "publish_date",
	"post_title", "post_content", "post_url", "featured_image",
	"website_url", "footer_address", "unsubscribe_url", "sender_name",
	"support_email", "header_image", "show_feature_image", "show_excerpt",
	"footer_content", "title_font_category", "body_font_category", "title_alignment",
}

// Vars maps template variable names to rendered values.
type Vars map[string]string

// Missing returns the required keys absent from v, sorted.
func (v Vars) Missing() []string {
	var out []string
	for _, k := range Keys {
		if _, ok := v[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (v Vars) clone() Vars {
	out := make(Vars, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Site holds site-level fallbacks that take precedence over hardcoded defaults.
type Site struct {
	Name          string // sender display name configured for the site
	FromEmail     string
	ReplyTo       string
	SupportEmail  string
	FooterAddress string
	WebsiteURL    string
	ArchiveURL    string // past issues; defaults to the website's /newsletters page
}

// Resolver turns raw Ghost settings into template variables.
type Resolver struct {
	Site Site
}

// Resolve uses only hardcoded defaults as fallbacks.
func Resolve(branding, newsletter map[string]any) Vars {
	return Resolver{}.Resolve(branding, newsletter)
}

// Resolve maps raw branding settings and newsletter settings (either may be nil)
// to a complete set of template variables. For each field the explicit value
// wins, then a related field, then the site fallback, then the hardcoded default.
// Null, empty and wrongly typed values count as absent.
func (r Resolver) Resolve(branding, newsletter map[string]any) Vars {
	v := make(Vars, len(Keys)+8)
	for _, k := range Keys {
		v[k] = ""
	}

	accent := str(branding, "accent_color", DefaultAccentColor)
	brand := str(branding, "brand_color", accent)
	v["accent_color"] = accent
	v["brand_color"] = brand
	v["primary_color"] = accent
	v["secondary_color"] = brand
	v["text_color"] = str(branding, "text_color", DefaultTextColor)
	v["light_text_color"] = str(branding, "light_text_color", DefaultLightTextColor)
	v["border_color"] = str(branding, "border_color", DefaultBorderColor)
	bg := str(branding, "background_color", DefaultBackgroundColor)
	// Ghost newsletters store "light"/"dark" or a hex color.
	if nbg := str(newsletter, "background_color", ""); isHexColor(nbg) {
		bg = nbg
	}
	v["background_color"] = bg

	siteName := firstNonEmpty(r.Site.Name, str(branding, "title", ""))
	newsletterName := firstNonEmpty(str(branding, "title", ""), r.Site.Name, DefaultNewsletterName)
	sender := str(newsletter, "sender_name", firstNonEmpty(siteName, newsletterName))
	v["sender_name"] = sender
	v["newsletter_name"] = newsletterName
	v["newsletter_title"] = str(newsletter, "name", newsletterName)
	v["author_name"] = sender
	v["post_title"] = DefaultPostTitle

	website := strings.TrimRight(firstNonEmpty(r.Site.WebsiteURL, str(branding, "url", "")), "/")
	v["website_url"] = website
	if website != "" {
		v["unsubscribe_url"] = website + unsubscribePath
	}
	v["archive_url"] = r.Site.ArchiveURL
	if v["archive_url"] == "" && website != "" {
		v["archive_url"] = website + archivePath
	}
	v["footer_address"] = firstNonEmpty(r.Site.FooterAddress, siteName)
	v["support_email"] = firstNonEmpty(
		str(branding, "members_support_address", ""),
		str(branding, "support_email_address", ""),
		r.Site.SupportEmail,
	)
	if !strings.Contains(v["support_email"], "@") {
		// Ghost stores "noreply" style local parts for some installs.
		v["support_email"] = r.Site.SupportEmail
	}

	v["header_image"] = str(newsletter, "header_image", "")
	v["show_feature_image"] = boolean(newsletter, "show_feature_image", true)
	v["show_excerpt"] = boolean(newsletter, "show_excerpt", true)
	v["footer_content"] = str(newsletter, "footer_content", "")
	v["title_font_category"] = str(newsletter, "title_font_category", DefaultFontCategory)
	v["body_font_category"] = str(newsletter, "body_font_category", DefaultFontCategory)
	v["title_alignment"] = str(newsletter, "title_alignment", DefaultTitleAlignment)

	// Supplementary values that are not required by every template.
	v["sender_email"] = str(newsletter, "sender_email", r.Site.FromEmail)
	replyTo := r.Site.ReplyTo
	if rt := str(newsletter, "sender_reply_to", ""); strings.Contains(rt, "@") {
		replyTo = rt
	}
	v["reply_to"] = replyTo
	v["site_logo"] = str(branding, "logo", "")
	v["site_icon"] = str(branding, "icon", "")
	v["site_cover_image"] = str(branding, "cover_image", "")
	v["site_description"] = str(branding, "description", "")
	v["preheader"] = ""
	v["issue_date"] = ""
	v["newsletter_interval"] = ""
	for _, k := range shareKeys {
		v[k] = ""
	}
	return v
}

var shareKeys = []string{"share_twitter_url", "share_facebook_url", "share_linkedin_url"}

// Post holds the post fields merged into the variables.
type Post struct {
	Title        string
	HTML         string // already processed for email
	URL          string
	FeatureImage string
	Author       string
	Excerpt      string
	PublishedAt  time.Time
}

// WithPost returns a copy of v with the post fields filled in. A zero
// PublishedAt falls back to now. A post without a feature image borrows the
// site logo, then the site cover image.
func (v Vars) WithPost(p Post, now time.Time) Vars {
	out := v.clone()
	if t := strings.TrimSpace(p.Title); t != "" {
		out["post_title"] = p.Title
	}
	out["post_content"] = p.HTML
	out["post_url"] = p.URL
	out["featured_image"] = firstNonEmpty(p.FeatureImage, out["site_logo"], out["site_cover_image"])
	if p.Author != "" {
		out["author_name"] = p.Author
	}
	date := p.PublishedAt
	if date.IsZero() {
		date = now
	}
	out["publish_date"] = date.Format(PublishDateLayout)
	if p.Excerpt != "" {
		out["preheader"] = p.Excerpt
	}
	if p.URL != "" {
		u := url.QueryEscape(p.URL)
		out["share_twitter_url"] = "https://twitter.com/intent/tweet?text=" + url.QueryEscape(out["post_title"]) + "&url=" + u
		out["share_facebook_url"] = "https://www.facebook.com/sharer/sharer.php?u=" + u
		out["share_linkedin_url"] = "https://www.linkedin.com/sharing/share-offsite/?url=" + u
	}
	return out
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func isHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// str returns m[key] when it is a non-empty string, otherwise def.
func str(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	s, ok := m[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// boolean renders m[key] as "true"/"false", accepting JSON booleans and their
// string forms.
func boolean(m map[string]any, key string, def bool) string {
	val := def
	switch b := m[key].(type) {
	case bool:
		val = b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			val = parsed
		}
	}
	return strconv.FormatBool(val)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
