package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const brevoSendEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoSender sends email through the Brevo transactional API.
type BrevoSender struct {
	apiKey      string
	senderName  string
	senderEmail string
	endpoint    string
	client      *http.Client
}

func NewBrevoSender(apiKey, senderName, senderEmail string) *BrevoSender {
	return &BrevoSender{
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
		endpoint:    brevoSendEndpoint,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *BrevoSender) Send(ctx context.Context, msg Message) error {
	payload := brevoPayload{
		Sender:      brevoAddress{Name: s.senderName, Email: s.senderEmail},
		To:          []brevoAddress{{Email: msg.ToEmail, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal brevo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create brevo request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("brevo returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Brevo v3 transactional email payload types.
type brevoPayload struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
