package notification

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ntfyTimeout bounds a single publish.
const ntfyTimeout = 5 * time.Second

// NtfyClient publishes notifications to an ntfy server.
type NtfyClient struct {
	client *resty.Client
	topic  string
}

type ntfyMessage struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
}

// NewNtfyClient creates a client for topic on server.
func NewNtfyClient(server, topic string) *NtfyClient {
	client := resty.New().
		SetBaseURL(server).
		SetTimeout(ntfyTimeout).
		SetHeader("Content-Type", "application/json")

	return &NtfyClient{
		client: client,
		topic:  topic,
	}
}

// Send implements the Notifier interface
func (c *NtfyClient) Send(n Notification) error {
	msg := ntfyMessage{
		Topic:   c.topic,
		Title:   n.Title,
		Message: n.Message,
	}
	if n.Event != "" {
		msg.Tags = []string{n.Event}
	}

	resp, err := c.client.R().
		SetBody(msg).
		Post("/")
	if err != nil {
		return fmt.Errorf("failed to publish to ntfy: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
