package widget

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"chat-widget-backend/pkg/api"
)

// Fallback texts shown when the exchange fails. These are fixed: the widget
// never surfaces upstream detail to the visitor.
const (
	InvalidResponseText = "Sorry, I received an invalid response. Please try again."
	ConnectionErrorText = "Sorry, I'm having trouble connecting. Please try again later."
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one chat bubble. HTML is set only for bot messages when
// markdown rendering is active; it is already sanitized. When HTML is empty
// the view must render Text literally, with no markup interpretation.
type Message struct {
	Role Role
	Text string
	HTML string
}

// View receives UI mutations from the controller. Calls arrive serialized:
// the controller never invokes two View methods concurrently.
type View interface {
	ShowWindow()
	HideWindow()
	ShowTeaser()
	HideTeaser()
	ShowBadge(count int)
	HideBadge()
	FocusInput()
	ClearInput()
	AppendMessage(m Message)
	ShowTyping(id string)
	RemoveTyping(id string)
	ScrollToLatest()
}

// Transport performs the message exchange. Send must not block; done is
// invoked exactly once, from any goroutine, when the exchange completes.
type Transport interface {
	Send(text string, done func(reply api.ChatReply, err error))
}

// Controller is the widget state machine: window open/closed, teaser, badge,
// message history, and the send lifecycle. One instance per widget; no
// package-level state, so several widgets can coexist on a page.
//
// All state mutations and View calls happen under an internal lock, which
// stands in for the single UI event thread: concurrent transport completions
// are serialized, and each in-flight send owns its own typing indicator id,
// so rapid-fire sends cannot remove each other's indicator.
type Controller struct {
	mu sync.Mutex

	cfg      api.WidgetConfig
	view     View
	network  Transport
	markdown *MarkdownRenderer

	open            bool
	firstOpenDone   bool
	teaserDismissed bool
	history         []Message
}

// Option configures a Controller.
type Option func(*Controller)

// WithMarkdown enables sanitized markdown rendering for bot messages.
// Without it every message renders as literal text.
func WithMarkdown(r *MarkdownRenderer) Option {
	return func(c *Controller) { c.markdown = r }
}

func NewController(cfg api.WidgetConfig, view View, network Transport, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, view: view, network: network}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.ShowBadge {
		view.ShowBadge(cfg.BadgeCount)
	}
	return c
}

// Open shows the chat window, hiding the teaser and badge. The configured
// welcome message is appended once, on the first open only, without any
// network call.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return
	}
	c.open = true

	c.view.HideTeaser()
	c.view.HideBadge()
	c.view.ShowWindow()

	if !c.firstOpenDone && c.cfg.WelcomeMessage != "" {
		c.firstOpenDone = true
		c.appendBotLocked(c.cfg.WelcomeMessage)
	}

	c.view.FocusInput()
}

// Close hides the window. History is kept for the page lifetime, so
// reopening shows the conversation so far.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return
	}
	c.open = false
	c.view.HideWindow()
}

func (c *Controller) Toggle() {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()

	if open {
		c.Close()
	} else {
		c.Open()
	}
}

// ShowTeaser is invoked when the configured auto-show delay elapses. It is a
// no-op when the chat is open or the teaser was dismissed.
func (c *Controller) ShowTeaser() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open || c.teaserDismissed {
		return
	}
	c.view.ShowTeaser()
}

// DismissTeaser hides the teaser for the rest of the page lifetime.
func (c *Controller) DismissTeaser() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teaserDismissed = true
	c.view.HideTeaser()
}

// Send posts the visitor's message. Empty-after-trim input is a complete
// no-op: no render, no network. Otherwise the user bubble appears
// immediately, the input clears, and a typing indicator is shown until the
// exchange completes one way or the other.
func (c *Controller) Send(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	c.append(Message{Role: RoleUser, Text: text})
	c.view.ClearInput()

	typingID := uuid.NewString()
	c.view.ShowTyping(typingID)
	c.view.ScrollToLatest()
	c.mu.Unlock()

	c.network.Send(text, func(reply api.ChatReply, err error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.view.RemoveTyping(typingID)

		if err != nil {
			c.appendBotLocked(ConnectionErrorText)
			return
		}
		replyText, ok := reply.Text()
		if !ok {
			c.appendBotLocked(InvalidResponseText)
			return
		}
		c.appendBotLocked(replyText)
	})
}

// History returns a copy of the conversation so far.
func (c *Controller) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// IsOpen reports whether the chat window is showing.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Controller) appendBotLocked(text string) {
	msg := Message{Role: RoleBot, Text: text}
	if c.markdown != nil {
		if html, err := c.markdown.Render(text); err == nil {
			msg.HTML = html
		}
	}
	c.append(msg)
	c.view.ScrollToLatest()
}

func (c *Controller) append(m Message) {
	c.history = append(c.history, m)
	c.view.AppendMessage(m)
}
