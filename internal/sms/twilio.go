package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig controls how the Twilio client behaves.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Twilio sends messages through the Twilio Messages REST endpoint.
type Twilio struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*Twilio)(nil)

// NewTwilio creates a configured client with sane defaults.
func NewTwilio(cfg TwilioConfig) (*Twilio, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" ||
		strings.TrimSpace(cfg.AuthToken) == "" ||
		strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("sms: twilio account sid, auth token and from number are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Twilio{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts one message and reports the SID and delivery status
// Twilio returned.
func (t *Twilio) Send(ctx context.Context, to, body string) (*Result, error) {
	form := url.Values{}
	form.Set("From", t.fromNumber)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("sms: twilio build request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms: twilio http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sms: twilio read response: %w", err)
	}

	var parsed twilioMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("sms: twilio decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Message != "" {
			return nil, fmt.Errorf("sms: twilio send failed (status=%d, code=%d): %s", resp.StatusCode, parsed.Code, parsed.Message)
		}
		return nil, fmt.Errorf("sms: twilio send failed (status=%d)", resp.StatusCode)
	}

	status := parsed.Status
	if status == "" {
		status = "queued"
	}
	return &Result{
		ProviderMessageID: parsed.SID,
		DeliveryStatus:    status,
		Raw:               data,
	}, nil
}
