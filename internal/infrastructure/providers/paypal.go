package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vieclance/wls/pkg/config"
	"github.com/vieclance/wls/pkg/currency"
)

// PayPalClient wraps the checkout orders API (deposits) and the payouts API
// (withdrawals). Access tokens are cached until shortly before expiry.
type PayPalClient struct {
	baseURL    string
	httpClient *http.Client
	config     *config.PayPalConfig
	logger     zerolog.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalClient(cfg *config.PayPalConfig, logger zerolog.Logger) *PayPalClient {
	return &PayPalClient{
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
		logger: logger.With().Str("component", "paypal_client").Logger(),
	}
}

func (c *PayPalClient) CreateOrder(ctx context.Context, amountUSDCents int64, description string) (string, string, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"description": description,
				"amount": map[string]string{
					"currency_code": "USD",
					"value":         currency.CentsToUSD(amountUSDCents).StringFixed(2),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": c.config.ReturnURL,
			"cancel_url": c.config.CancelURL,
		},
	}

	body, err := c.post(ctx, "/v2/checkout/orders", payload)
	if err != nil {
		return "", "", err
	}

	var order struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &order); err != nil {
		return "", "", fmt.Errorf("parsing JSON response failed: %w", err)
	}
	if order.ID == "" {
		return "", "", fmt.Errorf("order response missing id")
	}

	approvalURL := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}
	if approvalURL == "" {
		return "", "", fmt.Errorf("order response missing approval link")
	}
	return order.ID, approvalURL, nil
}

func (c *PayPalClient) CreatePayout(ctx context.Context, email string, amountUSDCents int64) (string, error) {
	payload := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"email_subject": "You have a payout",
		},
		"items": []map[string]interface{}{
			{
				"recipient_type": "EMAIL",
				"receiver":       email,
				"amount": map[string]string{
					"currency": "USD",
					"value":    currency.CentsToUSD(amountUSDCents).StringFixed(2),
				},
			},
		},
	}

	body, err := c.post(ctx, "/v1/payments/payouts", payload)
	if err != nil {
		return "", err
	}

	var payout struct {
		BatchHeader struct {
			PayoutBatchID string `json:"payout_batch_id"`
		} `json:"batch_header"`
	}
	if err := json.Unmarshal(body, &payout); err != nil {
		return "", fmt.Errorf("parsing JSON response failed: %w", err)
	}
	if payout.BatchHeader.PayoutBatchID == "" {
		return "", fmt.Errorf("payout response missing batch id")
	}
	return payout.BatchHeader.PayoutBatchID, nil
}

func (c *PayPalClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return c.postWithRetry(ctx, path, payload, 0)
}

func (c *PayPalClient) postWithRetry(ctx context.Context, path string, payload interface{}, attempt int) ([]byte, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if shouldRetry(err) && attempt < c.config.MaxRetries {
			backoff := calculateBackoff(attempt)
			c.logger.Info().
				Err(err).
				Str("path", path).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Request failed, retrying after backoff")
			time.Sleep(backoff)
			return c.postWithRetry(ctx, path, payload, attempt+1)
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
		if attempt < c.config.MaxRetries {
			return c.postWithRetry(ctx, path, payload, attempt+1)
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if shouldRetryStatusCode(resp.StatusCode) && attempt < c.config.MaxRetries {
			backoff := calculateBackoff(attempt)
			c.logger.Warn().
				Int("status_code", resp.StatusCode).
				Str("path", path).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Received non-200 status, retrying after backoff")
			time.Sleep(backoff)
			return c.postWithRetry(ctx, path, payload, attempt+1)
		}
		return nil, handleErrorResponse(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body failed: %w", err)
	}
	return respBody, nil
}

func (c *PayPalClient) getAccessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request failed: %w", err)
	}
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", handleErrorResponse(resp)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("parsing token response failed: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

func (c *PayPalClient) invalidateToken() {
	c.tokenMu.Lock()
	c.accessToken = ""
	c.tokenMu.Unlock()
}
