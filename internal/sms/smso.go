package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultSmsoBaseURL = "https://app.smso.ro/api/v1"

// SmsoConfig controls how the SMSO.ro client behaves. Sender is
// optional; when empty the first sender registered on the account is
// discovered at first send and cached.
type SmsoConfig struct {
	APIKey     string
	Sender     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Smso sends messages through the SMSO.ro gateway.
type Smso struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu               sync.Mutex
	configuredSender string
	discoveredSender string
}

var _ Provider = (*Smso)(nil)

// NewSmso creates a configured client with sane defaults.
func NewSmso(cfg SmsoConfig) (*Smso, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sms: smso api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSmsoBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Smso{
		apiKey:           cfg.APIKey,
		baseURL:          baseURL,
		httpClient:       httpClient,
		configuredSender: strings.TrimSpace(cfg.Sender),
	}, nil
}

// Send resolves the sender, posts one message and reports what the
// gateway answered.
func (s *Smso) Send(ctx context.Context, to, body string) (*Result, error) {
	sender, err := s.resolveSender(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("sender", sender)
	form.Set("to", to)
	form.Set("body", body)

	status, data, err := s.invoke(ctx, http.MethodPost, "/send", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("sms: smso send failed (status=%d): %s", status, smsoErrorMessage(data))
	}

	return &Result{
		ProviderMessageID: smsoMessageID(data),
		DeliveryStatus:    smsoDeliveryStatus(data),
		Raw:               data,
	}, nil
}

// resolveSender prefers the configured sender, then a previously
// discovered one, then asks the gateway for the account's senders.
func (s *Smso) resolveSender(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configuredSender != "" {
		return s.configuredSender, nil
	}
	if s.discoveredSender != "" {
		return s.discoveredSender, nil
	}

	status, data, err := s.invoke(ctx, http.MethodGet, "/senders", nil, "")
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("sms: smso senders lookup failed (status=%d): %s", status, smsoErrorMessage(data))
	}

	sender := smsoFirstSenderID(data)
	if sender == "" {
		return "", errors.New("sms: smso sender could not be auto-detected, set SMSO_SENDER")
	}
	s.discoveredSender = sender
	return sender, nil
}

func (s *Smso) invoke(ctx context.Context, method, path string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("sms: smso build request: %w", err)
	}
	req.Header.Set("X-Authorization", s.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sms: smso http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("sms: smso read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// The gateway's payloads are loosely shaped, so the readers below probe
// the known field spellings instead of binding to one schema.

func smsoDecode(data []byte) map[string]any {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return record
}

func smsoMessageID(data []byte) string {
	record := smsoDecode(data)
	for _, key := range []string{"responseToken", "message_id", "id", "sms_id"} {
		if id := asString(record[key]); id != "" {
			return id
		}
	}
	return ""
}

func smsoDeliveryStatus(data []byte) string {
	record := smsoDecode(data)
	switch v := record["status"].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case bool:
		if !v {
			return "failed"
		}
	}
	return "queued"
}

func smsoErrorMessage(data []byte) string {
	record := smsoDecode(data)
	for _, key := range []string{"messages", "message", "error", "detail"} {
		if msg, ok := record[key].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return "unknown smso error"
}

func smsoFirstSenderID(data []byte) string {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		record := smsoDecode(data)
		for _, key := range []string{"data", "senders", "items"} {
			if list, ok := record[key].([]any); ok {
				for _, item := range list {
					if row, ok := item.(map[string]any); ok {
						rows = append(rows, row)
					}
				}
				break
			}
		}
	}
	if len(rows) == 0 {
		return ""
	}
	for _, key := range []string{"id", "sender_id", "senderId"} {
		if id := asString(rows[0][key]); id != "" {
			return id
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
