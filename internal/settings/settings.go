package settings

import (
	"net/url"
	"regexp"
	"strings"

	"chat-widget-backend/pkg/api"
)

const (
	PositionLeft  = "left"
	PositionRight = "right"
)

var (
	hexColorRe = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	bareHexRe  = regexp.MustCompile(`^([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	siteSlugRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

// Settings is the full widget configuration, including server-side-only
// fields (webhook URL, site slug). The public page surface is derived via
// PublicConfig.
type Settings struct {
	Enabled    bool
	WebhookURL string
	SiteSlug   string

	PrimaryColor    string
	SecondaryColor  string
	BackgroundColor string
	Position        string

	TeaserText       string
	ShowTeaserOnLoad bool
	TeaserAvatar     string

	HeaderName       string
	ResponseTimeText string
	WelcomeMessage   string

	PoweredByText string
	PoweredByLink string

	ShowBadge  bool
	BadgeCount int
}

func Defaults() Settings {
	return Settings{
		Enabled:          true,
		WebhookURL:       "",
		SiteSlug:         "site",
		PrimaryColor:     "#00BFA5",
		SecondaryColor:   "#009688",
		BackgroundColor:  "#FFFFFF",
		Position:         PositionRight,
		TeaserText:       "Have a question? Chat with us now. We typically reply in minutes.",
		ShowTeaserOnLoad: true,
		TeaserAvatar:     "",
		HeaderName:       "Support",
		ResponseTimeText: "We typically reply in minutes",
		WelcomeMessage:   "Hi there! How can I help you today?",
		PoweredByText:    "Powered by Chat Widget",
		PoweredByLink:    "",
		ShowBadge:        true,
		BadgeCount:       1,
	}
}

// Sanitize normalizes every field in place, falling back to defaults for
// values that fail validation. Returns the sanitized copy.
func Sanitize(s Settings) Settings {
	defaults := Defaults()

	s.WebhookURL = sanitizeURL(s.WebhookURL)

	s.PrimaryColor = sanitizeHexColor(s.PrimaryColor, defaults.PrimaryColor)
	s.SecondaryColor = sanitizeHexColor(s.SecondaryColor, defaults.SecondaryColor)
	s.BackgroundColor = sanitizeHexColor(s.BackgroundColor, defaults.BackgroundColor)

	if s.Position != PositionLeft && s.Position != PositionRight {
		s.Position = defaults.Position
	}

	s.SiteSlug = sanitizeSiteSlug(s.SiteSlug, defaults.SiteSlug)

	s.TeaserText = sanitizeText(s.TeaserText)
	s.HeaderName = sanitizeText(s.HeaderName)
	s.ResponseTimeText = sanitizeText(s.ResponseTimeText)
	s.WelcomeMessage = sanitizeMultiline(s.WelcomeMessage)
	s.PoweredByText = sanitizeText(s.PoweredByText)

	s.TeaserAvatar = sanitizeURL(s.TeaserAvatar)
	s.PoweredByLink = sanitizeURL(s.PoweredByLink)

	if s.BadgeCount < 0 {
		s.BadgeCount = 0
	}

	return s
}

// Apply overlays the non-nil fields of an update request onto s and returns
// the sanitized result.
func Apply(s Settings, req api.UpdateSettingsRequest) Settings {
	if req.Enabled != nil {
		s.Enabled = *req.Enabled
	}
	if req.WebhookURL != nil {
		s.WebhookURL = *req.WebhookURL
	}
	if req.SiteSlug != nil {
		s.SiteSlug = *req.SiteSlug
	}
	if req.PrimaryColor != nil {
		s.PrimaryColor = *req.PrimaryColor
	}
	if req.SecondaryColor != nil {
		s.SecondaryColor = *req.SecondaryColor
	}
	if req.BackgroundColor != nil {
		s.BackgroundColor = *req.BackgroundColor
	}
	if req.Position != nil {
		s.Position = *req.Position
	}
	if req.TeaserText != nil {
		s.TeaserText = *req.TeaserText
	}
	if req.ShowTeaserOnLoad != nil {
		s.ShowTeaserOnLoad = *req.ShowTeaserOnLoad
	}
	if req.TeaserAvatar != nil {
		s.TeaserAvatar = *req.TeaserAvatar
	}
	if req.HeaderName != nil {
		s.HeaderName = *req.HeaderName
	}
	if req.ResponseTimeText != nil {
		s.ResponseTimeText = *req.ResponseTimeText
	}
	if req.WelcomeMessage != nil {
		s.WelcomeMessage = *req.WelcomeMessage
	}
	if req.PoweredByText != nil {
		s.PoweredByText = *req.PoweredByText
	}
	if req.PoweredByLink != nil {
		s.PoweredByLink = *req.PoweredByLink
	}
	if req.ShowBadge != nil {
		s.ShowBadge = *req.ShowBadge
	}
	if req.BadgeCount != nil {
		s.BadgeCount = *req.BadgeCount
	}
	return Sanitize(s)
}

// PublicConfig derives the page-visible configuration. The webhook URL stays
// server-side; the widget talks to chatEndpoint with the provided nonce.
func (s Settings) PublicConfig(chatEndpoint, nonce string) api.WidgetConfig {
	return api.WidgetConfig{
		Enabled:          s.Enabled,
		PrimaryColor:     s.PrimaryColor,
		SecondaryColor:   s.SecondaryColor,
		BackgroundColor:  s.BackgroundColor,
		Position:         s.Position,
		TeaserText:       s.TeaserText,
		ShowTeaserOnLoad: s.ShowTeaserOnLoad,
		TeaserAvatar:     s.TeaserAvatar,
		HeaderName:       s.HeaderName,
		ResponseTimeText: s.ResponseTimeText,
		WelcomeMessage:   s.WelcomeMessage,
		PoweredByText:    s.PoweredByText,
		PoweredByLink:    s.PoweredByLink,
		ShowBadge:        s.ShowBadge,
		BadgeCount:       s.BadgeCount,
		ChatEndpoint:     chatEndpoint,
		Nonce:            nonce,
	}
}

// CookieName builds the per-site session cookie name, e.g. "acme_chat_session".
func (s Settings) CookieName() string {
	slug := sanitizeSiteSlug(s.SiteSlug, Defaults().SiteSlug)
	return slug + "_chat_session"
}

func sanitizeHexColor(color, fallback string) string {
	color = strings.TrimSpace(color)
	if hexColorRe.MatchString(color) {
		return color
	}
	if bareHexRe.MatchString(color) {
		return "#" + color
	}
	return fallback
}

func sanitizeSiteSlug(slug, fallback string) string {
	slug = siteSlugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(slug)), "")
	if slug == "" {
		return fallback
	}
	return slug
}

func sanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func sanitizeText(text string) string {
	return strings.TrimSpace(stripControl(text, false))
}

func sanitizeMultiline(text string) string {
	return strings.TrimSpace(stripControl(text, true))
}

func stripControl(text string, keepNewlines bool) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' && keepNewlines {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
}
