package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider is the outbound SMS port. The real implementation talks to the
// Twilio REST API; the log provider stands in when no credentials are
// configured.
type Provider interface {
	// SendSMS dispatches one message and returns the provider's message id.
	SendSMS(ctx context.Context, to, body string) (string, error)
}

const twilioAPIBase = "https://api.twilio.com"

// TwilioProvider sends messages through the Twilio Messages API.
type TwilioProvider struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	return &TwilioProvider{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TwilioProvider) SendSMS(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", "+"+to)
	form.Set("From", t.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio: send to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("twilio: send to %s: status %d: %s", to, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("twilio: decode response: %w", err)
	}
	return out.SID, nil
}

// LogProvider logs outbound messages instead of sending them. Default for
// local development.
type LogProvider struct{}

func (LogProvider) SendSMS(ctx context.Context, to, body string) (string, error) {
	id := "log-" + uuid.NewString()
	slog.InfoContext(ctx, "sms (log provider)", "to", to, "body", body, "message_id", id)
	return id, nil
}
