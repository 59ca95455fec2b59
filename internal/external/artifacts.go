package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ArtifactClient talks to the rendering service that composes the
// printable ticket image (QR code over the poster artwork).
type ArtifactClient struct {
	baseURL    string
	httpClient *http.Client
}

type ArtifactConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RenderTicketRequest struct {
	Code       string `json:"code"`
	ShowNumber int    `json:"show_number"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

func NewArtifactClient(cfg ArtifactConfig) *ArtifactClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &ArtifactClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (ac *ArtifactClient) RenderTicket(ctx context.Context, req RenderTicketRequest) error {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ac.baseURL+"/render", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := ac.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to render ticket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
