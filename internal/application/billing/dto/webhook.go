package dto

import (
	"encoding/json"
	"fmt"
	"time"
)

// WebhookPayload is the provider's event envelope. Marker is the provider's
// monotonic counter for the subscription; PeriodStart/PeriodEnd are unix
// seconds and only present on renewal events.
type WebhookPayload struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	SubscriptionID string `json:"subscription_id"`
	Marker         uint64 `json:"marker"`
	Immediate      bool   `json:"immediate,omitempty"`
	Reason         string `json:"reason,omitempty"`
	PeriodStart    int64  `json:"period_start,omitempty"`
	PeriodEnd      int64  `json:"period_end,omitempty"`
	CustomerEmail  string `json:"customer_email,omitempty"`
}

// ParseWebhookPayload decodes and structurally validates the raw event body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	if payload.ID == "" {
		return nil, fmt.Errorf("webhook payload missing event id")
	}
	if payload.Type == "" {
		return nil, fmt.Errorf("webhook payload missing event type")
	}
	if payload.SubscriptionID == "" {
		return nil, fmt.Errorf("webhook payload missing subscription id")
	}

	return &payload, nil
}

// PeriodStartTime converts the renewal period start to UTC time.
func (p *WebhookPayload) PeriodStartTime() time.Time {
	return time.Unix(p.PeriodStart, 0).UTC()
}

// PeriodEndTime converts the renewal period end to UTC time.
func (p *WebhookPayload) PeriodEndTime() time.Time {
	return time.Unix(p.PeriodEnd, 0).UTC()
}
