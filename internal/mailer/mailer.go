// Package mailer delivers rendered invoice emails through an HTTP mail
// gateway. The service decides whether a send is legal and supplies the
// rendered body and attachment; actual transport belongs to the gateway.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"invoicely-backend/internal/config"
)

// Message is one outbound email with an optional PDF attachment.
type Message struct {
	To             string `json:"to"`
	ToName         string `json:"to_name"`
	FromName       string `json:"from_name"`
	FromEmail      string `json:"from_email"`
	Subject        string `json:"subject"`
	HTMLBody       string `json:"html_body"`
	AttachmentName string `json:"attachment_name,omitempty"`
	// Attachment is base64-encoded in the gateway payload.
	Attachment string `json:"attachment,omitempty"`
}

// Notifier dispatches invoice emails.
type Notifier interface {
	SendInvoice(ctx context.Context, msg Message) error
}

// GatewayMailer posts messages to a configured HTTP mail gateway.
type GatewayMailer struct {
	url    string
	apiKey string
	from   struct{ name, email string }
	client *http.Client
}

func NewGatewayMailer(cfg *config.Config) *GatewayMailer {
	m := &GatewayMailer{
		url:    cfg.Mail.GatewayURL,
		apiKey: cfg.Mail.APIKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
	m.from.name = cfg.Mail.FromName
	m.from.email = cfg.Mail.FromEmail
	return m
}

// SendInvoice posts the message to the gateway. When no gateway is
// configured the message is logged and dropped, which keeps development
// setups working without credentials.
func (m *GatewayMailer) SendInvoice(ctx context.Context, msg Message) error {
	if msg.FromEmail == "" {
		msg.FromName = m.from.name
		msg.FromEmail = m.from.email
	}

	if m.url == "" {
		log.Printf("[Mail] gateway not configured, dropping message to %s (%s)", msg.To, msg.Subject)
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// EncodeAttachment prepares raw bytes for the gateway payload.
func EncodeAttachment(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
