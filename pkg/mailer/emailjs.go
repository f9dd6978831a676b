package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// ErrDisabled signals that the relay has no credentials configured.
var ErrDisabled = errors.New("emailjs: delivery disabled")

// Message is a template render request: the template id selects the layout,
// Params fill its placeholders.
type Message struct {
	TemplateID string
	Params     map[string]string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailJSSettings capture the relay credentials.
type EmailJSSettings struct {
	Endpoint          string
	ServiceID         string
	DefaultTemplateID string
	PublicKey         string
	PrivateKey        string
	Timeout           time.Duration
}

type emailJSMailer struct {
	cfg    EmailJSSettings
	client *http.Client
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// NewEmailJS builds a Mailer that relays through the EmailJS REST API.
func NewEmailJS(cfg EmailJSSettings, client *http.Client) Mailer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &emailJSMailer{cfg: cfg, client: client}
}

func (m *emailJSMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.ServiceID == "" || m.cfg.PublicKey == "" {
		return ErrDisabled
	}

	templateID := msg.TemplateID
	if templateID == "" {
		templateID = m.cfg.DefaultTemplateID
	}
	if templateID == "" {
		return errors.New("emailjs: template id is required")
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:      m.cfg.ServiceID,
		TemplateID:     templateID,
		UserID:         m.cfg.PublicKey,
		AccessToken:    m.cfg.PrivateKey,
		TemplateParams: msg.Params,
	})
	if err != nil {
		return fmt.Errorf("emailjs: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emailjs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs: relay returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
