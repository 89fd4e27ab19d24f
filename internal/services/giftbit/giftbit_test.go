package giftbit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: url})
}

func TestGetCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cards/amazon-25", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(cardResponse{Card: Card{
			ID:           "amazon-25",
			Brand:        "Amazon",
			PriceInCents: 2500,
			Currency:     "USD",
		}})
	}))
	defer server.Close()

	card, err := newTestClient(server.URL).GetCard(context.Background(), "amazon-25")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), card.PriceInCents)
}

func TestGetCard_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"info":{"message":"no such card"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetCard(context.Background(), "bogus")
	require.Error(t, err)

	vendorErr, ok := err.(*VendorError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, vendorErr.StatusCode)
	assert.Equal(t, "no such card", vendorErr.Message)
	assert.False(t, vendorErr.Retryable)
}

func TestCreateGift_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gifts", r.URL.Path)

		var req GiftRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "idem-123", req.IdempotencyKey)

		json.NewEncoder(w).Encode(giftResponse{Gift: GiftConfirmation{
			GiftID: "gift-1",
			Status: "delivered",
		}})
	}))
	defer server.Close()

	confirmation, err := newTestClient(server.URL).CreateGift(context.Background(), GiftRequest{
		CardID:         "amazon-25",
		RecipientEmail: "user@example.com",
		IdempotencyKey: "idem-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "gift-1", confirmation.GiftID)
}

func TestCreateGift_RejectionNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"info":{"message":"account funds exhausted"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateGift(context.Background(), GiftRequest{CardID: "c"})
	require.Error(t, err)

	vendorErr, ok := err.(*VendorError)
	require.True(t, ok)
	assert.False(t, vendorErr.Retryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestCreateGift_TransientFailureRetried(t *testing.T) {
	var calls int32
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)

		var req GiftRequest
		json.NewDecoder(r.Body).Decode(&req)
		keys = append(keys, req.IdempotencyKey)

		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(giftResponse{Gift: GiftConfirmation{GiftID: "gift-2"}})
	}))
	defer server.Close()

	confirmation, err := newTestClient(server.URL).CreateGift(context.Background(), GiftRequest{
		CardID:         "c",
		IdempotencyKey: "idem-retry",
	})
	require.NoError(t, err)
	assert.Equal(t, "gift-2", confirmation.GiftID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	// retries reuse the same idempotency key so the vendor deduplicates
	for _, k := range keys {
		assert.Equal(t, "idem-retry", k)
	}
}

func TestCreateGift_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateGift(context.Background(), GiftRequest{CardID: "c"})
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&calls))
}
