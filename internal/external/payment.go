package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Line item metadata keys. The same keys are written when the session
// is created and read back during fulfillment, so tickets never have to
// be reconstructed from display labels.
const (
	MetadataShowID       = "show_id"
	MetadataCategory     = "category"
	MetadataVariant      = "variant"
	MetadataUitPasNumber = "uitpas_number"
)

type PaymentClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Checkout session models based on the provider's hosted-checkout API.
type SessionLineItem struct {
	Name       string            `json:"name"`
	UnitAmount int64             `json:"unit_amount"`
	Quantity   int               `json:"quantity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type CreateSessionRequest struct {
	Mode       string            `json:"mode"`
	Currency   string            `json:"currency"`
	LineItems  []SessionLineItem `json:"line_items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
}

type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
}

type listLineItemsResponse struct {
	Data []SessionLineItem `json:"data"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (pc *PaymentClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*CheckoutSession, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		pc.baseURL+"/v1/checkout/sessions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+pc.secretKey)

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func (pc *PaymentClient) GetSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		pc.baseURL+"/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+pc.secretKey)

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func (pc *PaymentClient) ListLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		pc.baseURL+"/v1/checkout/sessions/"+sessionID+"/line_items", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+pc.secretKey)

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result listLineItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Data, nil
}
