package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
)

type mailtrapAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapRequest struct {
	From              mailtrapAddress   `json:"from"`
	To                []mailtrapAddress `json:"to"`
	Subject           string            `json:"subject,omitempty"`
	HTML              string            `json:"html,omitempty"`
	Category          string            `json:"category,omitempty"`
	TemplateUUID      string            `json:"template_uuid,omitempty"`
	TemplateVariables map[string]string `json:"template_variables,omitempty"`
}

type mailtrapResponse struct {
	Success    bool     `json:"success"`
	MessageIDs []string `json:"message_ids"`
	Errors     []string `json:"errors"`
}

// MailtrapSender delivers through the Mailtrap sending API. Templates with a
// configured UUID are rendered by Mailtrap; the rest are rendered locally.
type MailtrapSender struct {
	cfg    config.MailtrapConfig
	client *http.Client
	log    *zap.Logger
}

func NewMailtrapSender(cfg config.MailtrapConfig, client *http.Client, log *zap.Logger) *MailtrapSender {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &MailtrapSender{
		cfg:    cfg,
		client: client,
		log:    log,
	}
}

func (s *MailtrapSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	req, err := s.buildRequest(msg)
	if err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mailtrap request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed mailtrapResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !parsed.Success {
		return fmt.Errorf("mailtrap rejected %s email: status %d: %v", msg.Template, resp.StatusCode, parsed.Errors)
	}

	s.log.Debug("email sent",
		zap.String("template", string(msg.Template)),
		zap.Strings("message_ids", parsed.MessageIDs))
	return nil
}

func (s *MailtrapSender) buildRequest(msg Message) (*mailtrapRequest, error) {
	req := &mailtrapRequest{
		From: mailtrapAddress{Email: s.cfg.SenderEmail, Name: s.cfg.SenderName},
		To:   []mailtrapAddress{{Email: msg.To}},
	}

	if uuid := s.cfg.Templates[string(msg.Template)]; uuid != "" {
		vars := map[string]string{"company_info_name": s.cfg.CompanyName}
		for k, v := range msg.Params {
			vars[k] = v
		}
		req.TemplateUUID = uuid
		req.TemplateVariables = vars
		return req, nil
	}

	subject, category, html, err := render(msg)
	if err != nil {
		return nil, err
	}
	req.Subject = subject
	req.Category = category
	req.HTML = html
	return req, nil
}
