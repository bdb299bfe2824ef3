package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/pkg/config"
)

// SepayClient covers both halves of the bank gateway: QR collection for
// deposits (confirmation comes through the webhook) and payouts for bank
// withdrawals.
type SepayClient struct {
	baseURL    string
	httpClient *http.Client
	config     *config.SepayConfig
	logger     zerolog.Logger
}

func NewSepayClient(cfg *config.SepayConfig, logger zerolog.Logger) *SepayClient {
	return &SepayClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		config: cfg,
		logger: logger.With().Str("component", "sepay_client").Logger(),
	}
}

func (c *SepayClient) QRCodeURL(amountVND int64, transferContent string) string {
	return fmt.Sprintf("%s/img?acc=%s&bank=%s&amount=%d&des=%s",
		c.config.QRBaseURL,
		url.QueryEscape(c.config.AccountNumber),
		url.QueryEscape(c.config.BankName),
		amountVND,
		url.QueryEscape(transferContent))
}

func (c *SepayClient) CollectionAccount() (bankName, accountNumber string) {
	return c.config.BankName, c.config.AccountNumber
}

func (c *SepayClient) CreatePayout(ctx context.Context, req *domain.WithdrawalRequest) (string, error) {
	payload := map[string]interface{}{
		"reference_id":   req.ID,
		"bank_name":      req.BankName,
		"account_number": req.BankAccount,
		"account_holder": req.AccountHolder,
		"amount":         req.AmountUSDCents,
		"currency":       "USD",
	}
	return c.createPayoutWithRetry(ctx, payload, 0)
}

func (c *SepayClient) createPayoutWithRetry(ctx context.Context, payload map[string]interface{}, attempt int) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding payout request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/payouts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if shouldRetry(err) && attempt < c.config.MaxRetries {
			backoff := calculateBackoff(attempt)
			c.logger.Info().
				Err(err).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Payout request failed, retrying after backoff")
			time.Sleep(backoff)
			return c.createPayoutWithRetry(ctx, payload, attempt+1)
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if shouldRetryStatusCode(resp.StatusCode) && attempt < c.config.MaxRetries {
			backoff := calculateBackoff(attempt)
			c.logger.Warn().
				Int("status_code", resp.StatusCode).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Received non-200 status, retrying after backoff")
			time.Sleep(backoff)
			return c.createPayoutWithRetry(ctx, payload, attempt+1)
		}
		return "", handleErrorResponse(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body failed: %w", err)
	}

	var payout struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &payout); err != nil {
		return "", fmt.Errorf("parsing JSON response failed: %w", err)
	}
	if payout.ID == "" {
		return "", fmt.Errorf("payout response missing id")
	}
	return payout.ID, nil
}

func handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("HTTP error %d: failed to read response body", resp.StatusCode)
	}

	var errorResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil {
		if errorResp.Error != "" {
			return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, errorResp.Error)
		}
		if errorResp.Message != "" {
			return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, errorResp.Message)
		}
	}
	return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
}

func shouldRetry(err error) bool {
	if err, ok := err.(interface{ Timeout() bool }); ok && err.Timeout() {
		return true
	}
	if err, ok := err.(interface{ Temporary() bool }); ok && err.Temporary() {
		return true
	}
	return false
}

func shouldRetryStatusCode(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

func calculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(1<<attempt) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
