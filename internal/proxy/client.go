package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// DefaultTimeout bounds the round trip to the workflow webhook. No retries:
// on failure the visitor re-sends manually.
const DefaultTimeout = 30 * time.Second

// ErrorKind classifies upstream failures. The kind picks the generic client
// message; everything else stays in the server log.
type ErrorKind int

const (
	// KindTransport covers DNS, connect, TLS, and timeout failures.
	KindTransport ErrorKind = iota
	// KindStatus covers non-200 upstream responses.
	KindStatus
	// KindFormat covers 200 responses whose body is not valid JSON.
	KindFormat
)

// ClientMessage is the fixed, non-identifying text returned to the widget
// for this failure kind.
func (k ErrorKind) ClientMessage() string {
	switch k {
	case KindStatus:
		return "Chat service returned an error"
	case KindFormat:
		return "Invalid response from chat service"
	default:
		return "Failed to connect to chat service"
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindFormat:
		return "format"
	default:
		return "transport"
	}
}

// UpstreamError is returned by Send for any webhook failure. Err carries the
// underlying detail for server-side logs only.
type UpstreamError struct {
	Kind ErrorKind
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return e.Kind.ClientMessage() + ": " + e.Err.Error()
	}
	return e.Kind.ClientMessage()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type webhookRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// Client forwards chat messages to the configured workflow webhook.
type Client struct {
	client *resty.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// TLS verification stays at the resty default (on).
	return &Client{client: resty.New().SetTimeout(timeout)}
}

// Send posts {message, sessionId} to the webhook and returns the upstream
// JSON payload verbatim. Failures come back as *UpstreamError; the message
// content and full webhook URL are never logged.
func (c *Client) Send(ctx context.Context, webhookURL, message string, sessionID uuid.UUID) (json.RawMessage, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookRequest{Message: message, SessionID: sessionID.String()}).
		Post(webhookURL)

	if err != nil {
		slog.Error("unable to reach chat webhook", "url", RedactURL(webhookURL), "error", err)
		return nil, &UpstreamError{Kind: KindTransport, Err: err}
	}

	body := res.Body()

	if !res.IsSuccess() {
		slog.Error("chat webhook returned an error",
			"url", RedactURL(webhookURL),
			"status_code", res.StatusCode(),
			"content_type", res.Header().Get("Content-Type"),
			"body_bytes", len(body),
			"body_sha256", checksum(body),
			"received_at", res.ReceivedAt().UTC().Format(time.RFC3339),
		)
		return nil, &UpstreamError{Kind: KindStatus}
	}

	if !json.Valid(body) {
		slog.Error("chat webhook returned a malformed body",
			"url", RedactURL(webhookURL),
			"content_type", res.Header().Get("Content-Type"),
			"body_bytes", len(body),
			"body_sha256", checksum(body),
		)
		return nil, &UpstreamError{Kind: KindFormat}
	}

	return json.RawMessage(body), nil
}

// RedactURL strips credentials and the query string from a webhook URL so it
// is safe to log: scheme, host, and path survive, nothing else.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	redacted := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	if u.RawQuery != "" {
		return redacted.String() + "?<redacted>"
	}
	return redacted.String()
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:8])
}
