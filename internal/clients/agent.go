// Package clients talks to the retrieval and generation services over HTTP/JSON.
package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
)

const defaultModel = "gpt-4"

// Options configures a client.
type Options struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

func (o Options) model() string {
	if o.Model == "" {
		return defaultModel
	}
	return o.Model
}

func (o Options) endpoint(path string) string {
	return strings.TrimRight(o.BaseURL, "/") + path
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StatusError reports a non-2xx response from an upstream service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// effectiveTimeout bounds the configured timeout by the context deadline.
func effectiveTimeout(ctx context.Context, configured time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := configured
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}

// doJSON runs agent and decodes a JSON response into out.
func doJSON(ctx context.Context, agent *fiber.Agent, timeout time.Duration, out any) error {
	t, err := effectiveTimeout(ctx, timeout)
	if err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	if t > 0 {
		agent.Timeout(t)
	}
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	code, body, errs := agent.Struct(out)
	if code == 0 && len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return &StatusError{Status: code, Body: preview(string(body), 200)}
	}
	if len(errs) > 0 {
		return fmt.Errorf("decode response: %w", errors.Join(errs...))
	}
	return nil
}

// preview trims body to at most max bytes for error messages, cutting on a
// rune boundary.
func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	n := max - 3
	for n > 0 && !utf8.RuneStart(body[n]) {
		n--
	}
	return body[:n] + "..."
}
