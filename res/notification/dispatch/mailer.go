package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	netmail "net/mail"
	"net/http"
	"time"
)

// httpMailer sends transactional email through an HTTP mail API
type httpMailer struct {
	apiKey      string
	apiBaseURL  string
	senderEmail string
	senderName  string
	logger      *log.Logger
	httpClient  *http.Client
}

// NewMailer creates an HTTP-API backed Mailer
func NewMailer(apiKey, apiBaseURL, senderEmail, senderName string, timeout time.Duration, logger *log.Logger) Mailer {
	return &httpMailer{
		apiKey:      apiKey,
		apiBaseURL:  apiBaseURL,
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      logger,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailPayload struct {
	Sender      mailAddress   `json:"sender"`
	To          []mailAddress `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
}

func (m *httpMailer) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	if _, err := netmail.ParseAddress(toEmail); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	payload := mailPayload{
		Sender:      mailAddress{Email: m.senderEmail, Name: m.senderName},
		To:          []mailAddress{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.apiBaseURL+"/email", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, string(body))
	}

	m.logger.Printf("Sent email %q to %s", subject, toEmail)
	return nil
}
