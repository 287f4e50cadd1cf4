package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pupscribe/orderform/pkg"
)

// Zoho allows roughly one request per second per org; stay just under it.
const (
	zohoRateLimit     = 1.0
	zohoBurst         = 2
	zohoRetryAttempts = 3
	zohoRetryDelay    = 2 * time.Second
)

type cachedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ZohoClient talks to the Zoho Books and Inventory APIs using the
// refresh-token OAuth flow. Access tokens are cached in Redis so restarts
// and multiple workers share them; when Redis is down the client falls back
// to a per-process cache.
type ZohoClient struct {
	cfg     pkg.ZohoConfig
	http    *http.Client
	limiter *rate.Limiter
	redis   *redis.Client
	logger  *zap.SugaredLogger

	mu        sync.Mutex
	memTokens map[string]cachedToken
}

func NewZohoClient(cfg pkg.ZohoConfig, rdb *redis.Client, logger *zap.SugaredLogger) *ZohoClient {
	return &ZohoClient{
		cfg:       cfg,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(zohoRateLimit), zohoBurst),
		redis:     rdb,
		logger:    logger,
		memTokens: make(map[string]cachedToken),
	}
}

func (z *ZohoClient) refreshTokenFor(service string) (string, error) {
	switch service {
	case "books":
		return z.cfg.BooksRefreshToken, nil
	case "inventory":
		return z.cfg.InventoryRefreshToken, nil
	default:
		return "", fmt.Errorf("unknown zoho service %q", service)
	}
}

// AccessToken returns a valid access token for the given service ("books" or
// "inventory"), fetching a fresh one only when the cached token is missing
// or about to expire.
func (z *ZohoClient) AccessToken(ctx context.Context, service string) (string, error) {
	key := "zoho:token:" + service

	if z.redis != nil {
		raw, err := z.redis.Get(ctx, key).Result()
		if err == nil && raw != "" {
			return raw, nil
		}
	}

	z.mu.Lock()
	if tok, ok := z.memTokens[service]; ok && time.Now().Before(tok.ExpiresAt) {
		z.mu.Unlock()
		return tok.Token, nil
	}
	z.mu.Unlock()

	refreshToken, err := z.refreshTokenFor(service)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {z.cfg.ClientID},
		"client_secret": {z.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		z.cfg.AccountsURL+"/oauth/v2/token?"+form.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := z.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to refresh %s access token: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token refresh for %s returned %d: %s", service, resp.StatusCode, body)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token refresh for %s returned no access_token", service)
	}

	// Expire the cache entry a minute early so in-flight requests never use
	// a token that dies under them.
	ttl := time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}

	if z.redis != nil {
		if err := z.redis.Set(ctx, key, tokenResp.AccessToken, ttl).Err(); err != nil {
			z.logger.Warnf("Failed to cache %s token in redis: %v", service, err)
		}
	}
	z.mu.Lock()
	z.memTokens[service] = cachedToken{Token: tokenResp.AccessToken, ExpiresAt: time.Now().Add(ttl)}
	z.mu.Unlock()

	return tokenResp.AccessToken, nil
}

func (z *ZohoClient) do(ctx context.Context, service, method, rawURL string, body any, out any) error {
	if err := z.limiter.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= zohoRetryAttempts; attempt++ {
		token, err := z.AccessToken(ctx, service)
		if err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := z.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("%s %s returned %d: %s", method, rawURL, resp.StatusCode, respBody)
			} else if resp.StatusCode >= 400 {
				return fmt.Errorf("%s %s returned %d: %s", method, rawURL, resp.StatusCode, respBody)
			} else {
				if out != nil {
					return json.Unmarshal(respBody, out)
				}
				return nil
			}
		}

		if attempt < zohoRetryAttempts {
			z.logger.Warnf("Zoho request failed (attempt %d/%d): %v", attempt, zohoRetryAttempts, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(zohoRetryDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}

// Wire shapes for the subset of Zoho payloads the backend consumes. The same
// shapes arrive via webhooks and via the paged sync endpoints.

type ZohoItem struct {
	ItemID             string  `json:"item_id"`
	Name               string  `json:"name"`
	Status             string  `json:"status"`
	Rate               float64 `json:"rate"`
	PurchaseRate       float64 `json:"purchase_rate"`
	StockOnHand        float64 `json:"stock_on_hand"`
	SKU                string  `json:"sku"`
	HSNOrSAC           string  `json:"hsn_or_sac"`
	ImageURL           string  `json:"image_url"`
	IsComboProduct     bool    `json:"is_combo_product"`
	ItemTaxPreferences []struct {
		TaxPercentage float64 `json:"tax_percentage"`
	} `json:"item_tax_preferences"`
	CustomFieldHash struct {
		CFSKUCode string `json:"cf_sku_code"`
	} `json:"custom_field_hash"`
}

type ZohoInvoice struct {
	InvoiceID       string  `json:"invoice_id"`
	InvoiceNumber   string  `json:"invoice_number"`
	Status          string  `json:"status"`
	Date            string  `json:"date"`
	DueDate         string  `json:"due_date"`
	CustomerID      string  `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	Total           float64 `json:"total"`
	Balance         float64 `json:"balance"`
	SalesPerson     string  `json:"cf_sales_person"`
	SalespersonName string  `json:"salesperson_name"`
}

type zohoPageContext struct {
	HasMorePage bool `json:"has_more_page"`
}

// FetchItems pulls one page of items from Zoho Inventory.
func (z *ZohoClient) FetchItems(ctx context.Context, page int) ([]ZohoItem, bool, error) {
	var out struct {
		Items       []ZohoItem      `json:"items"`
		PageContext zohoPageContext `json:"page_context"`
	}
	u := fmt.Sprintf("%s/items?organization_id=%s&page=%d", z.cfg.InventoryURL, z.cfg.OrgID, page)
	if err := z.do(ctx, "inventory", http.MethodGet, u, nil, &out); err != nil {
		return nil, false, err
	}
	return out.Items, out.PageContext.HasMorePage, nil
}

// FetchInvoices pulls one page of invoices from Zoho Books.
func (z *ZohoClient) FetchInvoices(ctx context.Context, page int) ([]ZohoInvoice, bool, error) {
	var out struct {
		Invoices    []ZohoInvoice   `json:"invoices"`
		PageContext zohoPageContext `json:"page_context"`
	}
	u := fmt.Sprintf("%s/invoices?organization_id=%s&page=%d", z.cfg.BooksURL, z.cfg.OrgID, page)
	if err := z.do(ctx, "books", http.MethodGet, u, nil, &out); err != nil {
		return nil, false, err
	}
	return out.Invoices, out.PageContext.HasMorePage, nil
}

type EstimateLineItem struct {
	Name     string  `json:"name"`
	Rate     float64 `json:"rate"`
	Quantity int64   `json:"quantity"`
}

type EstimatePayload struct {
	CustomerName string             `json:"customer_name"`
	ReferenceNum string             `json:"reference_number,omitempty"`
	LineItems    []EstimateLineItem `json:"line_items"`
}

type EstimateResult struct {
	EstimateID     string `json:"estimate_id"`
	EstimateNumber string `json:"estimate_number"`
	EstimateURL    string `json:"estimate_url"`
}

// CreateEstimate creates a Zoho Books estimate and returns its identifiers.
func (z *ZohoClient) CreateEstimate(ctx context.Context, payload EstimatePayload) (*EstimateResult, error) {
	var out struct {
		Estimate EstimateResult `json:"estimate"`
	}
	u := fmt.Sprintf("%s/estimates?organization_id=%s", z.cfg.BooksURL, z.cfg.OrgID)
	if err := z.do(ctx, "books", http.MethodPost, u, payload, &out); err != nil {
		return nil, err
	}
	return &out.Estimate, nil
}

// UpdateEstimate rewrites an existing estimate in place, keeping its number.
func (z *ZohoClient) UpdateEstimate(ctx context.Context, estimateID string, payload EstimatePayload) (*EstimateResult, error) {
	var out struct {
		Estimate EstimateResult `json:"estimate"`
	}
	u := fmt.Sprintf("%s/estimates/%s?organization_id=%s", z.cfg.BooksURL, estimateID, z.cfg.OrgID)
	if err := z.do(ctx, "books", http.MethodPut, u, payload, &out); err != nil {
		return nil, err
	}
	return &out.Estimate, nil
}

// MarkEstimateStatus moves an estimate through sent/accepted/declined.
func (z *ZohoClient) MarkEstimateStatus(ctx context.Context, estimateID, status string) error {
	u := fmt.Sprintf("%s/estimates/%s/status/%s?organization_id=%s",
		z.cfg.BooksURL, estimateID, status, z.cfg.OrgID)
	return z.do(ctx, "books", http.MethodPost, u, nil, nil)
}
