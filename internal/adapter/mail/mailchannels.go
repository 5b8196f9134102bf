// Package mail delivers transactional email through the MailChannels send API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gds-payments/config"
	"gds-payments/internal/core/ports"
)

// MailChannels implements ports.Mailer.
type MailChannels struct {
	client    *http.Client
	url       string
	apiKey    string
	fromEmail string
	fromName  string
}

// New returns a MailChannels mailer, or nil when mail is disabled. A nil
// ports.Mailer turns receipt delivery into a no-op in the notification service.
func New(cfg config.MailConfig) ports.Mailer {
	if !cfg.Enabled {
		return nil
	}
	return &MailChannels{
		client:    &http.Client{Timeout: cfg.Timeout},
		url:       cfg.APIURL,
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type personalization struct {
	To []address `json:"to"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// Send posts one message. MailChannels answers 202 on acceptance.
func (m *MailChannels) Send(ctx context.Context, msg ports.MailMessage) error {
	req := sendRequest{
		Personalizations: []personalization{{To: []address{{Email: msg.To, Name: msg.ToName}}}},
		From:             address{Email: m.fromEmail, Name: m.fromName},
		Subject:          msg.Subject,
	}
	if msg.Text != "" {
		req.Content = append(req.Content, content{Type: "text/plain", Value: msg.Text})
	}
	req.Content = append(req.Content, content{Type: "text/html", Value: msg.HTML})

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", m.apiKey)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailchannels returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
