package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget-backend/internal/database"
	"chat-widget-backend/internal/nonce"
	"chat-widget-backend/internal/proxy"
	"chat-widget-backend/internal/settings"
	pkgapi "chat-widget-backend/pkg/api"
)

type testEnv struct {
	router chi.Router
	store  *settings.Store
	nonces *nonce.Issuer
}

func newTestEnv(t *testing.T, adminToken string) *testEnv {
	t.Helper()

	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)

	store := settings.NewStore(db)
	nonces := nonce.NewIssuer([]byte("test-signing-key"), time.Hour)
	service := NewChatService(store, proxy.NewClient(5*time.Second), nonces, adminToken)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		service.AddRoutes(r)
	})

	return &testEnv{router: router, store: store, nonces: nonces}
}

func (e *testEnv) configureWebhook(t *testing.T, webhookURL string) {
	t.Helper()
	cfg := settings.Defaults()
	cfg.WebhookURL = webhookURL
	cfg.SiteSlug = "acme"
	_, err := e.store.Save(context.Background(), cfg)
	require.NoError(t, err)
}

func (e *testEnv) postChat(message, nonceToken string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("message", message)
	form.Set("nonce", nonceToken)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["message"]
}

func TestChatRejectsInvalidNonce(t *testing.T) {
	env := newTestEnv(t, "")
	env.configureWebhook(t, "https://example.com/webhook")

	rec := env.postChat("hello", "not-a-valid-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid security token", errorMessage(t, rec))

	rec = env.postChat("hello", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t, "")
	env.configureWebhook(t, "https://example.com/webhook")

	for _, message := range []string{"", "   ", "\t\n"} {
		rec := env.postChat(message, env.nonces.Issue())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Message must not be empty", errorMessage(t, rec))
	}
}

func TestChatFailsWithoutWebhook(t *testing.T) {
	env := newTestEnv(t, "")
	// No settings saved: defaults have no webhook URL.

	rec := env.postChat("hello", env.nonces.Issue())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Chat service is unavailable", errorMessage(t, rec))
}

func TestChatIssuesSessionCookie(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Hi"}`)) //nolint:errcheck
	}))
	defer upstream.Close()

	env := newTestEnv(t, "")
	env.configureWebhook(t, upstream.URL)

	rec := env.postChat("hello", env.nonces.Issue())
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]

	assert.Equal(t, "acme_chat_session", cookie.Name)
	_, err := uuid.Parse(cookie.Value)
	assert.NoError(t, err, "session cookie must be a valid UUID")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.Secure, "plain HTTP request must not set Secure")

	// A second request presenting the cookie gets no new Set-Cookie.
	rec = env.postChat("hello again", env.nonces.Issue(), &http.Cookie{Name: cookie.Name, Value: cookie.Value})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestChatCookieSecureBehindTLSProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"Hi"}`)) //nolint:errcheck
	}))
	defer upstream.Close()

	env := newTestEnv(t, "")
	env.configureWebhook(t, upstream.URL)

	form := url.Values{}
	form.Set("message", "hello")
	form.Set("nonce", env.nonces.Issue())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestChatMalformedCookieReplaced(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"Hi"}`)) //nolint:errcheck
	}))
	defer upstream.Close()

	env := newTestEnv(t, "")
	env.configureWebhook(t, upstream.URL)

	rec := env.postChat("hello", env.nonces.Issue(), &http.Cookie{Name: "acme_chat_session", Value: "not-a-uuid"})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	_, err := uuid.Parse(cookies[0].Value)
	assert.NoError(t, err)
}

func TestChatRelaysUpstreamPayload(t *testing.T) {
	var received struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Hi there","sessionId":"ignored-by-proxy"}`)) //nolint:errcheck
	}))
	defer upstream.Close()

	env := newTestEnv(t, "")
	env.configureWebhook(t, upstream.URL)

	rec := env.postChat("  hello  ", env.nonces.Issue())
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "hello", received.Message, "message must be trimmed before forwarding")
	_, err := uuid.Parse(received.SessionID)
	assert.NoError(t, err, "a session id must be forwarded")

	var reply pkgapi.ChatReply
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	text, ok := reply.Text()
	assert.True(t, ok)
	assert.Equal(t, "Hi there", text)

	// The echoed sessionId must not rotate the cookie: the issued cookie is
	// the one and only Set-Cookie, and it is a real UUID.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "ignored-by-proxy", cookies[0].Value)
}

func TestChatUpstreamErrorsAreGeneric(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "workflow exploded: secret detail", http.StatusBadGateway)
		}))
		defer upstream.Close()

		env := newTestEnv(t, "")
		env.configureWebhook(t, upstream.URL)

		rec := env.postChat("hello", env.nonces.Issue())
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Chat service returned an error", errorMessage(t, rec))
		assert.NotContains(t, rec.Body.String(), "secret detail")
	})

	t.Run("malformed body", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>")) //nolint:errcheck
		}))
		defer upstream.Close()

		env := newTestEnv(t, "")
		env.configureWebhook(t, upstream.URL)

		rec := env.postChat("hello", env.nonces.Issue())
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Invalid response from chat service", errorMessage(t, rec))
	})

	t.Run("connection refused", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		upstream.Close() // nothing listens here anymore

		env := newTestEnv(t, "")
		env.configureWebhook(t, upstream.URL)

		rec := env.postChat("hello", env.nonces.Issue())
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to connect to chat service", errorMessage(t, rec))
	})
}

func TestWidgetConfigOmitsWebhookURL(t *testing.T) {
	env := newTestEnv(t, "")
	env.configureWebhook(t, "https://example.com/webhook?token=supersecret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/widget/config", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, rec.Body.String(), "example.com")
	assert.NotContains(t, rec.Body.String(), "supersecret")

	var cfg pkgapi.WidgetConfig
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cfg))
	assert.True(t, cfg.Enabled)
	assert.Equal(t, pkgapi.ChatEndpointPath, cfg.ChatEndpoint)
	assert.True(t, env.nonces.Verify(cfg.Nonce), "served nonce must verify")
}

func TestWidgetConfigDisabled(t *testing.T) {
	env := newTestEnv(t, "")
	cfg := settings.Defaults()
	cfg.Enabled = false
	_, err := env.store.Save(context.Background(), cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/widget/config", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The disabled payload carries nothing but the flag: no styling, no
	// endpoint, no nonce.
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

func TestSettingsUpdateAndSanitize(t *testing.T) {
	env := newTestEnv(t, "")

	payload := `{"webhookUrl":"https://example.com/hook","primaryColor":"0A0B0C","position":"upside-down","badgeCount":-3,"siteSlug":"My Site!"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "https://example.com/hook", got["webhookUrl"])
	assert.Equal(t, "#0A0B0C", got["primaryColor"], "bare hex gets a # prefix")
	assert.Equal(t, "right", got["position"], "unknown position falls back to default")
	assert.Equal(t, float64(0), got["badgeCount"], "negative badge count clamps to zero")
	assert.Equal(t, "mysite", got["siteSlug"])

	// Changes persist.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "https://example.com/hook", got["webhookUrl"])
}

func TestSettingsRequireAdminToken(t *testing.T) {
	env := newTestEnv(t, "super-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req.Header.Set("Authorization", "Bearer super-secret")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The chat endpoint is not behind the admin gate.
	rec = env.postChat("hello", "bad-nonce")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
