package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPEmailSender posts messages to a transactional email API
// (POST {BaseURL}/send with a bearer key).
type HTTPEmailSender struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewHTTPEmailSender(baseURL, apiKey string) *HTTPEmailSender {
	return &HTTPEmailSender{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *HTTPEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(sendEmailRequest{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
