// Package giftbit is the HTTP adapter for the Giftbit gift-card vendor.
// It is the authoritative source for card pricing; client-supplied prices
// are never trusted.
package giftbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.giftbit.com/papi/v1"

// maxAttempts bounds retries for transient vendor failures. A 4xx response
// is terminal and never retried.
const maxAttempts = 3

// Config holds configuration for the Giftbit client
type Config struct {
	APIKey  string
	BaseURL string
}

// Client talks to the Giftbit API
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Giftbit client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Card describes a redeemable gift card in the vendor catalog
type Card struct {
	ID           string `json:"id"`
	Brand        string `json:"brand"`
	Title        string `json:"title"`
	PriceInCents int64  `json:"price_in_cents"`
	Currency     string `json:"currency"`
}

// GiftRequest is the payload for issuing a gift
type GiftRequest struct {
	CardID         string `json:"card_id"`
	RecipientEmail string `json:"recipient_email"`
	IdempotencyKey string `json:"id"` // Giftbit deduplicates on this field
	Message        string `json:"message,omitempty"`
}

// GiftConfirmation is the vendor's acknowledgment of an issued gift
type GiftConfirmation struct {
	GiftID      string `json:"gift_id"`
	Status      string `json:"status"`
	ShortLink   string `json:"short_link"`
	DeliveredAt string `json:"delivered_at"`
}

type giftResponse struct {
	Info struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"info"`
	Gift GiftConfirmation `json:"gift"`
}

type cardResponse struct {
	Card Card `json:"card"`
}

// VendorError reports a vendor rejection or outage. Retryable is false for
// 4xx-class responses.
type VendorError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("giftbit: status %d: %s", e.StatusCode, e.Message)
}

// GetCard looks up a card and its authoritative price
func (c *Client) GetCard(ctx context.Context, cardID string) (*Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/cards/%s", c.baseURL, cardID), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, vendorError(resp.StatusCode, body)
	}

	var parsed cardResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error parsing card response: %w", err)
	}

	return &parsed.Card, nil
}

// CreateGift issues a gift card. The idempotency key in the request makes
// retries safe on the vendor side; transient failures are retried up to
// maxAttempts with backoff, vendor rejections are returned immediately.
func (c *Client) CreateGift(ctx context.Context, giftReq GiftRequest) (*GiftConfirmation, error) {
	reqBody, err := json.Marshal(giftReq)
	if err != nil {
		return nil, fmt.Errorf("error marshaling gift request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		confirmation, err := c.postGift(ctx, reqBody)
		if err == nil {
			return confirmation, nil
		}

		if vendorErr, ok := err.(*VendorError); ok && !vendorErr.Retryable {
			return nil, vendorErr
		}
		lastErr = err
	}

	return nil, fmt.Errorf("giftbit unreachable after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) postGift(ctx context.Context, reqBody []byte) (*GiftConfirmation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gifts", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, vendorError(resp.StatusCode, body)
	}

	var parsed giftResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error parsing gift response: %w", err)
	}

	return &parsed.Gift, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func vendorError(status int, body []byte) *VendorError {
	message := string(body)
	var parsed giftResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Info.Message != "" {
		message = parsed.Info.Message
	}

	return &VendorError{
		StatusCode: status,
		Message:    message,
		Retryable:  status >= http.StatusInternalServerError,
	}
}
