package clients

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// WebhookClient posts JSON notifications to a fixed URL.
type WebhookClient struct {
	url     string
	timeout time.Duration
}

// NewWebhookClient constructs the client.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	return &WebhookClient{url: url, timeout: timeout}
}

// Post sends payload as JSON. Any 2xx response counts as delivered; the body
// is ignored.
func (c *WebhookClient) Post(ctx context.Context, payload any) error {
	t, err := effectiveTimeout(ctx, c.timeout)
	if err != nil {
		return err
	}
	agent := fiber.Post(c.url)
	if t > 0 {
		agent.Timeout(t)
	}
	agent.JSON(payload)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return &StatusError{Status: code, Body: preview(string(body), 200)}
	}
	return nil
}
