package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SMSGateway delivers messages through an HTTP SMS provider. The channel
// identifier is the recipient's phone number. Each request carries a
// client-generated tracking id so provider responses can be correlated even
// when the provider omits its own id.
type SMSGateway struct {
	baseURL string
	apiKey  string
	sender  string
	httpc   *http.Client
}

func NewSMSGateway(baseURL, apiKey, sender string, timeout time.Duration) *SMSGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMSGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type smsSendRequest struct {
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Body       string `json:"body"`
	CustomerID string `json:"customerId"`
}

type smsSendResponse struct {
	MessageID string `json:"messageId"`
	ErrorCode string `json:"errorCode,omitempty"`
	Desc      string `json:"description,omitempty"`
}

func (g *SMSGateway) Send(ctx context.Context, channelID, text string) (string, error) {
	trackingID := uuid.NewString()
	payload, err := json.Marshal(smsSendRequest{
		Sender:     g.sender,
		Recipient:  channelID,
		Body:       text,
		CustomerID: trackingID,
	})
	if err != nil {
		return "", err
	}

	url := g.baseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{RetryAfter: retryAfterHeader(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sms gateway http status: %d", resp.StatusCode)
	}

	var out smsSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ErrorCode != "" {
		return "", fmt.Errorf("sms gateway error %s: %s", out.ErrorCode, out.Desc)
	}
	if out.MessageID == "" {
		return trackingID, nil
	}
	return out.MessageID, nil
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}

var _ Client = (*SMSGateway)(nil)
