package api

// ChatEndpointPath is where the widget posts messages, relative to the
// server base URL.
const ChatEndpointPath = "/api/v1/chat"

// ChatRequest is the form-encoded payload posted by the widget. The session
// identifier rides in an HttpOnly cookie, never in the body.
type ChatRequest struct {
	Message string `schema:"message" json:"message"`
	Nonce   string `schema:"nonce" json:"nonce"`
}

// ChatReply mirrors the webhook response contract. Workflows reply with
// either "response" or "output"; both are relayed to the widget as-is.
type ChatReply struct {
	Response string `json:"response,omitempty"`
	Output   string `json:"output,omitempty"`
}

// Text returns the reply text, preferring "response" over "output".
func (r ChatReply) Text() (string, bool) {
	if r.Response != "" {
		return r.Response, true
	}
	if r.Output != "" {
		return r.Output, true
	}
	return "", false
}

// WidgetConfig is the public, read-only configuration surface served to the
// page at load time. The webhook URL is deliberately absent: the widget only
// ever talks to the proxy endpoint. Every field except "enabled" is omitted
// when empty, so a disabled widget serves {"enabled":false} and nothing else.
type WidgetConfig struct {
	Enabled          bool   `json:"enabled"`
	PrimaryColor     string `json:"primaryColor,omitempty"`
	SecondaryColor   string `json:"secondaryColor,omitempty"`
	BackgroundColor  string `json:"backgroundColor,omitempty"`
	Position         string `json:"position,omitempty"`
	TeaserText       string `json:"teaserText,omitempty"`
	ShowTeaserOnLoad bool   `json:"showTeaserOnLoad,omitempty"`
	TeaserAvatar     string `json:"teaserAvatar,omitempty"`
	HeaderName       string `json:"headerName,omitempty"`
	ResponseTimeText string `json:"responseTimeText,omitempty"`
	WelcomeMessage   string `json:"welcomeMessage,omitempty"`
	PoweredByText    string `json:"poweredByText,omitempty"`
	PoweredByLink    string `json:"poweredByLink,omitempty"`
	ShowBadge        bool   `json:"showBadge,omitempty"`
	BadgeCount       int    `json:"badgeCount,omitempty"`

	ChatEndpoint string `json:"chatEndpoint,omitempty"`
	Nonce        string `json:"nonce,omitempty"`
}

// UpdateSettingsRequest carries the admin-editable settings. Field semantics
// match WidgetConfig plus the server-side-only webhook URL and site slug.
type UpdateSettingsRequest struct {
	Enabled          *bool   `json:"enabled,omitempty"`
	WebhookURL       *string `json:"webhookUrl,omitempty"`
	SiteSlug         *string `json:"siteSlug,omitempty"`
	PrimaryColor     *string `json:"primaryColor,omitempty"`
	SecondaryColor   *string `json:"secondaryColor,omitempty"`
	BackgroundColor  *string `json:"backgroundColor,omitempty"`
	Position         *string `json:"position,omitempty"`
	TeaserText       *string `json:"teaserText,omitempty"`
	ShowTeaserOnLoad *bool   `json:"showTeaserOnLoad,omitempty"`
	TeaserAvatar     *string `json:"teaserAvatar,omitempty"`
	HeaderName       *string `json:"headerName,omitempty"`
	ResponseTimeText *string `json:"responseTimeText,omitempty"`
	WelcomeMessage   *string `json:"welcomeMessage,omitempty"`
	PoweredByText    *string `json:"poweredByText,omitempty"`
	PoweredByLink    *string `json:"poweredByLink,omitempty"`
	ShowBadge        *bool   `json:"showBadge,omitempty"`
	BadgeCount       *int    `json:"badgeCount,omitempty"`
}
