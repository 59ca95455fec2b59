package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MailClient sends transactional mail through the Brevo HTTP API.
type MailClient struct {
	baseURL     string
	apiKey      string
	senderName  string
	senderEmail string
	adminEmail  string
	httpClient  *http.Client
}

type MailConfig struct {
	BaseURL     string
	APIKey      string
	SenderName  string
	SenderEmail string
	AdminEmail  string
	Timeout     time.Duration
}

// UitPasItem is one discount ticket listed in the staff verification mail.
type UitPasItem struct {
	Number string
	Label  string
	Code   string
}

type mailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type sendEmailRequest struct {
	Sender      mailAddress   `json:"sender"`
	To          []mailAddress `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
}

func NewMailClient(cfg MailConfig) *MailClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.brevo.com"
	}

	return &MailClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		senderName:  cfg.SenderName,
		senderEmail: cfg.SenderEmail,
		adminEmail:  cfg.AdminEmail,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendConfirmation mails the purchaser a link to their tickets.
func (mc *MailClient) SendConfirmation(ctx context.Context, to, link string) error {
	html := fmt.Sprintf(`<p>Bedankt voor je bestelling!</p>
<p>Je tickets staan klaar: <a href="%s">download je tickets</a>.</p>
<p>Toon de QR-code aan de ingang. Tot op de voorstelling!</p>`, link)

	return mc.send(ctx, mailAddress{Email: to}, "Je tickets voor de circusvoorstelling", html)
}

// SendVerificationRequest mails staff the UitPas numbers that need a
// manual check before their codes are activated.
func (mc *MailClient) SendVerificationRequest(ctx context.Context, sessionRef, customerEmail string, items []UitPasItem) error {
	var rows bytes.Buffer
	for _, item := range items {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>", item.Number, item.Label, item.Code)
	}

	html := fmt.Sprintf(`<p>Een bestelling bevat UiTPAS-tickets die geverifieerd moeten worden.</p>
<p>Bestelling: %s<br>Klant: %s</p>
<table border="1" cellpadding="4"><tr><th>UiTPAS-nummer</th><th>Ticket</th><th>Code</th></tr>%s</table>
<p>Activeer de codes via het dashboard na verificatie.</p>`, sessionRef, customerEmail, rows.String())

	return mc.send(ctx, mailAddress{Email: mc.adminEmail}, "UiTPAS-verificatie nodig", html)
}

func (mc *MailClient) send(ctx context.Context, to mailAddress, subject, html string) error {
	req := sendEmailRequest{
		Sender:      mailAddress{Name: mc.senderName, Email: mc.senderEmail},
		To:          []mailAddress{to},
		Subject:     subject,
		HTMLContent: html,
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		mc.baseURL+"/v3/smtp/email", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", mc.apiKey)

	resp, err := mc.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
