package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"auto-trade-engine-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	recvWindow      = "5000" // How long a request is valid in milliseconds
	OrderTypeMarket = "market"
)

// OrderRequest describes a market order to place on behalf of a user.
type OrderRequest struct {
	Symbol   string
	Side     string // "buy" or "sell"
	Type     string // only "market" is supported
	Quantity float64
}

// OrderResult is the broker's acknowledgement of a placed order.
type OrderResult struct {
	OrderID  string `json:"orderId"`
	AvgPrice string `json:"avgPrice"`
	Status   string `json:"status"`
}

// FillPrice returns the average fill price, or 0 when the broker did not
// report one.
func (r *OrderResult) FillPrice() float64 {
	p, err := strconv.ParseFloat(r.AvgPrice, 64)
	if err != nil {
		return 0
	}
	return p
}

// Connector is the exchange collaborator consumed by the execution
// coordinator. Implementations must honor ctx cancellation: the coordinator
// calls CreateOrder with an explicit timeout and degrades to a paper trade
// on failure.
type Connector interface {
	CreateOrder(ctx context.Context, userID, connectionID string, req OrderRequest) (*OrderResult, error)
	Ping(ctx context.Context) error
}

// RestConnector is a Connector over the exchange gateway's REST API.
type RestConnector struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// ensure RestConnector implements the interface
var _ Connector = (*RestConnector)(nil)

// NewRestConnector creates a new exchange gateway REST client.
func NewRestConnector(cfg *config.Exchange, logger *zap.Logger) *RestConnector {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestConnector{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   limiter,
	}
}

// sign creates a HMAC-SHA256 signature for the request.
func (c *RestConnector) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Ping checks connectivity to the exchange gateway.
func (c *RestConnector) Ping(ctx context.Context) error {
	req := c.client.R().SetContext(ctx)
	if _, err := c.doRequest(ctx, "GET", "/time", req); err != nil {
		return fmt.Errorf("failed to ping exchange gateway: %w", err)
	}
	return nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestConnector) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// CreateOrder places a market order through the gateway for the given user
// and exchange connection.
func (c *RestConnector) CreateOrder(ctx context.Context, userID, connectionID string, order OrderRequest) (*OrderResult, error) {
	if order.Type == "" {
		order.Type = OrderTypeMarket
	}

	params := url.Values{}
	params.Set("userId", userID)
	params.Set("connectionId", connectionID)
	params.Set("symbol", order.Symbol)
	params.Set("side", order.Side)
	params.Set("type", order.Type)
	params.Set("quantity", strconv.FormatFloat(order.Quantity, 'f', -1, 64))
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", recvWindow)

	queryString := params.Encode()
	signature := c.sign(queryString)
	params.Set("signature", signature)

	req := c.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", c.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(params.Encode()).
		SetResult(&OrderResult{})

	resp, err := c.doRequest(ctx, "POST", "/orders", req)
	if err != nil {
		c.logger.Error("Failed to create order after multiple attempts",
			zap.Error(err),
			zap.String("symbol", order.Symbol),
		)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	result := resp.Result().(*OrderResult)
	c.logger.Info("Successfully created order",
		zap.String("order_id", result.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", order.Side),
	)
	return result, nil
}
