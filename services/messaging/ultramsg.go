package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UltraMsgSender delivers WhatsApp messages through the UltraMsg
// gateway (POST {base}/{instance}/messages/chat).
type UltraMsgSender struct {
	BaseURL    string
	InstanceID string
	Token      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewUltraMsgSender(baseURL, instanceID, token string, logger *zap.Logger) *UltraMsgSender {
	return &UltraMsgSender{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		InstanceID: instanceID,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
	}
}

// SendMessage posts one chat message and returns the gateway message id.
func (s *UltraMsgSender) SendMessage(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("to", CleanPhone(to))
	form.Set("body", body)
	form.Set("priority", "10")
	form.Set("token", s.Token)

	endpoint := fmt.Sprintf("%s/%s/messages/chat", s.BaseURL, s.InstanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build UltraMsg request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("UltraMsg request failed: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode UltraMsg response: %w", err)
	}

	// The gateway answers {"sent":"true","id":...} on success; "sent"
	// has been observed both as a bool and as a string.
	if !truthy(result["sent"]) {
		detail := result["error"]
		if detail == nil {
			detail = result["message"]
		}
		return "", fmt.Errorf("UltraMsg rejected message to %s: %v", to, detail)
	}

	messageID := fmt.Sprint(result["id"])
	s.Logger.Debug("WhatsApp message sent",
		zap.String("to", to), zap.String("messageId", messageID))
	return messageID, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}

// CleanPhone strips provider framing from a phone handle: the
// "whatsapp:" prefix, a leading "+", and any "@c.us" style suffix.
func CleanPhone(phone string) string {
	phone = strings.TrimPrefix(phone, "whatsapp:")
	phone = strings.TrimPrefix(phone, "+")
	if i := strings.Index(phone, "@"); i >= 0 {
		phone = phone[:i]
	}
	return strings.TrimSpace(phone)
}
