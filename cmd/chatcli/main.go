package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/peterh/liner"

	"chat-widget-backend/pkg/widget"
)

// chatcli is a terminal client for the chat proxy. It drives the same
// controller state machine the embedded widget uses, so it exercises the
// full send lifecycle against a running backend.

type termView struct {
	botReply chan struct{}
}

func newTermView() *termView {
	return &termView{botReply: make(chan struct{}, 8)}
}

func (v *termView) ShowWindow()          {}
func (v *termView) HideWindow()          {}
func (v *termView) ShowTeaser()          {}
func (v *termView) HideTeaser()          {}
func (v *termView) ShowBadge(count int)  {}
func (v *termView) HideBadge()           {}
func (v *termView) FocusInput()          {}
func (v *termView) ClearInput()          {}
func (v *termView) ScrollToLatest()      {}
func (v *termView) ShowTyping(id string) { fmt.Println("bot is typing...") }
func (v *termView) RemoveTyping(string)  {}

func (v *termView) AppendMessage(m widget.Message) {
	if m.Role == widget.RoleBot {
		fmt.Printf("bot> %s\n", m.Text)
		select {
		case v.botReply <- struct{}{}:
		default:
		}
	}
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "chat backend base URL")
	flag.Parse()

	transport := widget.NewHTTPTransport(strings.TrimRight(*serverURL, "/"), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := transport.FetchConfig(ctx)
	if err != nil {
		log.Fatalf("error fetching widget config: %v", err)
	}
	if !cfg.Enabled {
		log.Fatal("chat widget is disabled on this server")
	}

	view := newTermView()
	ctrl := widget.NewController(cfg, view, transport, widget.WithMarkdown(widget.NewMarkdownRenderer()))

	fmt.Printf("connected to %s (%s)\n", *serverURL, cfg.HeaderName)
	ctrl.Open()
	drain(view.botReply) // welcome message, if configured

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			fmt.Println()
			return
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		ctrl.Send(input)

		select {
		case <-view.botReply:
		case <-time.After(40 * time.Second):
			fmt.Println("no reply received")
		}
	}
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
