package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chat-widget-backend/internal/metrics"
	"chat-widget-backend/internal/nonce"
	"chat-widget-backend/internal/proxy"
	"chat-widget-backend/internal/session"
	"chat-widget-backend/internal/settings"
	"chat-widget-backend/pkg/api"
)

// ChatEndpoint is the absolute path the widget posts messages to.
const ChatEndpoint = api.ChatEndpointPath

// ChatService owns the widget-facing endpoints: the message proxy, the
// public widget config, and the admin settings API. It holds no per-visitor
// state; the session cookie is the only conversation correlation.
type ChatService struct {
	store      *settings.Store
	webhook    *proxy.Client
	nonces     *nonce.Issuer
	adminToken string
}

func NewChatService(store *settings.Store, webhook *proxy.Client, nonces *nonce.Issuer, adminToken string) *ChatService {
	return &ChatService{
		store:      store,
		webhook:    webhook,
		nonces:     nonces,
		adminToken: adminToken,
	}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Post("/chat", s.Chat)
	r.Route("/widget", func(r chi.Router) {
		r.Get("/config", RestHandler(s.GetWidgetConfig))
	})
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/settings", RestHandler(s.GetSettings))
		r.Put("/settings", RestHandler(s.UpdateSettings))
	})
}

// Chat accepts a visitor message, resolves the session cookie, and relays
// the message to the configured webhook. Runs outside RestHandler because it
// writes the session cookie.
func (s *ChatService) Chat(w http.ResponseWriter, r *http.Request) {
	req, err := ParseFormRequest[api.ChatRequest](r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}

	if !s.nonces.Verify(req.Nonce) {
		WriteErrorResponse(w, CodedErrorf(http.StatusForbidden, "Invalid security token"))
		return
	}

	cfg, err := s.store.Get(r.Context())
	if err != nil {
		slog.Error("error loading settings for chat request", "error", err)
		WriteErrorResponse(w, CodedErrorf(http.StatusInternalServerError, "Chat service is unavailable"))
		return
	}

	if !cfg.Enabled || cfg.WebhookURL == "" {
		slog.Error("chat request received but no webhook is configured",
			"enabled", cfg.Enabled, "webhook_configured", cfg.WebhookURL != "")
		WriteErrorResponse(w, CodedErrorf(http.StatusInternalServerError, "Chat service is unavailable"))
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		WriteErrorResponse(w, CodedErrorf(http.StatusBadRequest, "Message must not be empty"))
		return
	}

	sessionID := s.resolveSession(w, r, cfg)

	start := time.Now()
	payload, err := s.webhook.Send(r.Context(), cfg.WebhookURL, message, sessionID)
	if err != nil {
		var uerr *proxy.UpstreamError
		if errors.As(err, &uerr) {
			metrics.RecordMessage(uerr.Kind.String(), time.Since(start))
			WriteErrorResponse(w, CodedErrorf(http.StatusInternalServerError, "%s", uerr.Kind.ClientMessage()))
			return
		}
		metrics.RecordMessage("transport", time.Since(start))
		WriteErrorResponse(w, CodedErrorf(http.StatusInternalServerError, "Failed to connect to chat service"))
		return
	}
	metrics.RecordMessage("ok", time.Since(start))

	// The upstream payload is relayed verbatim. An echoed sessionId in the
	// body is ignored: the cookie this handler set is authoritative, so the
	// webhook cannot rotate a visitor's session out from under them.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload) //nolint:errcheck
}

// resolveSession reuses a well-formed session cookie and issues a fresh one
// otherwise. At most one Set-Cookie per request.
func (s *ChatService) resolveSession(w http.ResponseWriter, r *http.Request, cfg settings.Settings) uuid.UUID {
	if id, ok := session.Resolve(r, cfg.CookieName()); ok {
		return id
	}
	id := session.Issue(w, r, cfg.CookieName())
	metrics.RecordSessionIssued()
	return id
}

// GetWidgetConfig serves the read-only page configuration plus a fresh
// anti-forgery token. The webhook URL is never part of this payload.
func (s *ChatService) GetWidgetConfig(r *http.Request) (any, error) {
	cfg, err := s.store.Get(r.Context())
	if err != nil {
		slog.Error("error loading settings for widget config", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "Chat service is unavailable")
	}

	if !cfg.Enabled {
		return api.WidgetConfig{Enabled: false}, nil
	}

	return cfg.PublicConfig(ChatEndpoint, s.nonces.Issue()), nil
}

func (s *ChatService) GetSettings(r *http.Request) (any, error) {
	cfg, err := s.store.Get(r.Context())
	if err != nil {
		slog.Error("error loading settings", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to load settings")
	}
	return settingsResponse(cfg), nil
}

func (s *ChatService) UpdateSettings(r *http.Request) (any, error) {
	req, err := ParseRequest[api.UpdateSettingsRequest](r)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Get(r.Context())
	if err != nil {
		slog.Error("error loading settings", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to load settings")
	}

	updated, err := s.store.Save(r.Context(), settings.Apply(current, req))
	if err != nil {
		slog.Error("error saving settings", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to save settings")
	}

	slog.Info("widget settings updated", "webhook_configured", updated.WebhookURL != "")
	return settingsResponse(updated), nil
}

// requireAdmin gates the settings API behind a bearer token when one is
// configured. Without a token the settings API is open, which is only
// acceptable for local development.
func (s *ChatService) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
				WriteErrorResponse(w, CodedErrorf(http.StatusUnauthorized, "invalid admin token"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// settingsResponse is the admin view: full settings including the webhook
// URL and site slug.
func settingsResponse(cfg settings.Settings) map[string]any {
	return map[string]any{
		"enabled":          cfg.Enabled,
		"webhookUrl":       cfg.WebhookURL,
		"siteSlug":         cfg.SiteSlug,
		"primaryColor":     cfg.PrimaryColor,
		"secondaryColor":   cfg.SecondaryColor,
		"backgroundColor":  cfg.BackgroundColor,
		"position":         cfg.Position,
		"teaserText":       cfg.TeaserText,
		"showTeaserOnLoad": cfg.ShowTeaserOnLoad,
		"teaserAvatar":     cfg.TeaserAvatar,
		"headerName":       cfg.HeaderName,
		"responseTimeText": cfg.ResponseTimeText,
		"welcomeMessage":   cfg.WelcomeMessage,
		"poweredByText":    cfg.PoweredByText,
		"poweredByLink":    cfg.PoweredByLink,
		"showBadge":        cfg.ShowBadge,
		"badgeCount":       cfg.BadgeCount,
	}
}
