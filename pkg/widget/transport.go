package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"chat-widget-backend/pkg/api"
)

// HTTPTransport talks to the proxy's chat endpoint: form-encoded message
// plus anti-forgery token, session cookie handled by the client's jar. It
// never posts to the webhook directly; the webhook URL stays server-side.
type HTTPTransport struct {
	client  *resty.Client
	baseURL string
	nonce   string
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &HTTPTransport{
		client:  resty.New().SetTimeout(timeout),
		baseURL: baseURL,
	}
}

// FetchConfig loads the public widget configuration, including the nonce
// used for subsequent sends.
func (t *HTTPTransport) FetchConfig(ctx context.Context) (api.WidgetConfig, error) {
	var cfg api.WidgetConfig
	res, err := t.client.R().
		SetContext(ctx).
		SetResult(&cfg).
		Get(t.baseURL + "/api/v1/widget/config")
	if err != nil {
		return api.WidgetConfig{}, fmt.Errorf("error fetching widget config: %w", err)
	}
	if !res.IsSuccess() {
		return api.WidgetConfig{}, fmt.Errorf("widget config request failed with status %d", res.StatusCode())
	}
	t.nonce = cfg.Nonce
	return cfg, nil
}

// Send implements Transport. The exchange runs in its own goroutine; done is
// called exactly once with either the parsed reply or an error.
func (t *HTTPTransport) Send(text string, done func(reply api.ChatReply, err error)) {
	go func() {
		res, err := t.client.R().
			SetFormData(map[string]string{
				"message": text,
				"nonce":   t.nonce,
			}).
			Post(t.baseURL + api.ChatEndpointPath)
		if err != nil {
			done(api.ChatReply{}, fmt.Errorf("error sending message: %w", err))
			return
		}
		if !res.IsSuccess() {
			done(api.ChatReply{}, fmt.Errorf("chat request failed with status %d", res.StatusCode()))
			return
		}

		var reply api.ChatReply
		if err := json.Unmarshal(res.Body(), &reply); err != nil {
			// A 200 with an unparseable body renders the invalid-response
			// fallback, same as a parseable body with no reply field.
			done(api.ChatReply{}, nil)
			return
		}
		done(reply, nil)
	}()
}
