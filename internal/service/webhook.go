package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/kagari-social/kagari/internal/domain"
)

// WebhookService posts events to registered local webhooks. Deliveries are
// best effort; a failed hook is logged by the caller and never retried.
type WebhookService struct {
	client    *http.Client
	userAgent string
}

func NewWebhookService(userAgent string) *WebhookService {
	return &WebhookService{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
	}
}

func (s *WebhookService) Deliver(ctx context.Context, hook domain.Webhook, event string, payload any) error {
	body, err := json.Marshal(map[string]any{
		"event": event,
		"body":  payload,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("X-Kagari-Event", event)
	if hook.Secret != "" {
		mac := hmac.New(sha256.New, []byte(hook.Secret))
		mac.Write(body)
		req.Header.Set("X-Kagari-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "webhook %s unreachable", hook.ID)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Errorf("webhook %s answered %d", hook.ID, resp.StatusCode)
	}
	return nil
}
