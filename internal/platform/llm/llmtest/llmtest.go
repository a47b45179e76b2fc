// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yungbote/paperlens-backend/internal/platform/llm"
)

// Reply is one scripted answer. Err wins over Text.
type Reply struct {
	Text string
	Err  error
}

// Client answers in order from its script. When Route is set it is consulted
// first, which lets concurrent callers get answers keyed on their prompt.
type Client struct {
	mu       sync.Mutex
	script   []Reply
	Route    func(req llm.Request) (text string, ok bool, err error)
	Requests []llm.Request
}

func New(replies ...Reply) *Client {
	return &Client{script: replies}
}

// Texts is shorthand for a script of successful replies.
func Texts(texts ...string) *Client {
	c := &Client{}
	for _, t := range texts {
		c.script = append(c.script, Reply{Text: t})
	}
	return c
}

func (c *Client) Push(r Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, r)
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.Requests = append(c.Requests, req)
	route := c.Route
	c.mu.Unlock()
	if route != nil {
		if text, ok, err := route(req); ok {
			return text, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.script) == 0 {
		return "", fmt.Errorf("llmtest: no scripted reply for prompt %q", head(req.Prompt))
	}
	r := c.script[0]
	c.script = c.script[1:]
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Calls returns how many requests were made.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

func head(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

var _ llm.Client = (*Client)(nil)
