package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
)

const (
	tokenHeader               = "Token"
	clientSourceHeader        = "X-Client-Source"
	requestBodyReadLimit int64 = 1024
)

var (
	errTokenRequired   = errors.New("courier api token is required")
	errBaseURLRequired = errors.New("courier base url is required")
)

// Client wraps the external courier API used for parcel registration,
// cancellation, label retrieval, fee quoting and status polling.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	partnerCode string
	maxRetries  int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithMaxRetries overrides how many times transient failures are retried.
func WithMaxRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
	}
}

// NewClient builds the courier client for the configured partner account.
func NewClient(baseURL, token, partnerCode string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		baseURL:     trimmedURL,
		token:       trimmedToken,
		partnerCode: strings.TrimSpace(partnerCode),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		maxRetries:  3,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return client, nil
}

// RegisterRequest describes the parcel handed to the courier.
type RegisterRequest struct {
	OrderRef        string          `json:"order_ref"`
	PickupAddress   string          `json:"pickup_address"`
	DeliveryAddress string          `json:"delivery_address"`
	WeightGrams     int             `json:"weight_grams"`
	CODAmount       decimal.Decimal `json:"cod_amount"`
}

// QuoteRequest describes a fee quote lookup.
type QuoteRequest struct {
	PickupAddress   string `json:"pickup_address"`
	DeliveryAddress string `json:"delivery_address"`
	WeightGrams     int    `json:"weight_grams"`
}

// Register hands the parcel to the courier and returns its external tracking code.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "courier client not configured")
	}
	if strings.TrimSpace(req.OrderRef) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order ref is required")
	}

	var apiResp struct {
		Success bool `json:"success"`
		Order   struct {
			Label string `json:"label"`
		} `json:"order"`
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "services/shipment/order", req, &apiResp); err != nil {
		return "", err
	}
	if !apiResp.Success || apiResp.Order.Label == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("courier rejected registration: %s", apiResp.Message))
	}
	return apiResp.Order.Label, nil
}

// Cancel voids a registered parcel by tracking code.
func (c *Client) Cancel(ctx context.Context, trackingCode string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "courier client not configured")
	}
	trimmed := strings.TrimSpace(trackingCode)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking code is required")
	}

	var apiResp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	path := fmt.Sprintf("services/shipment/cancel/%s", url.PathEscape(trimmed))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &apiResp); err != nil {
		return err
	}
	if !apiResp.Success {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("courier rejected cancellation: %s", apiResp.Message))
	}
	return nil
}

// FetchStatus polls the courier for the parcel's current external status code.
func (c *Client) FetchStatus(ctx context.Context, trackingCode string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "courier client not configured")
	}
	trimmed := strings.TrimSpace(trackingCode)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tracking code is required")
	}

	var apiResp struct {
		Success bool `json:"success"`
		Order   struct {
			Status string `json:"status"`
		} `json:"order"`
		Message string `json:"message"`
	}
	path := fmt.Sprintf("services/shipment/v2/%s", url.PathEscape(trimmed))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &apiResp); err != nil {
		return "", err
	}
	if !apiResp.Success {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("courier status lookup failed: %s", apiResp.Message))
	}
	return apiResp.Order.Status, nil
}

// QuoteFee asks the courier to price a prospective parcel.
func (c *Client) QuoteFee(ctx context.Context, req QuoteRequest) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "courier client not configured")
	}
	if strings.TrimSpace(req.PickupAddress) == "" || strings.TrimSpace(req.DeliveryAddress) == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "pickup and delivery addresses are required")
	}

	var apiResp struct {
		Success bool `json:"success"`
		Fee     struct {
			Fee decimal.Decimal `json:"fee"`
		} `json:"fee"`
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "services/shipment/fee", req, &apiResp); err != nil {
		return decimal.Zero, err
	}
	if !apiResp.Success {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("courier fee quote failed: %s", apiResp.Message))
	}
	return apiResp.Fee.Fee, nil
}

// Label downloads the printable shipping label PDF for a registered parcel.
func (c *Client) Label(ctx context.Context, trackingCode string) ([]byte, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "courier client not configured")
	}
	trimmed := strings.TrimSpace(trackingCode)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking code is required")
	}

	path := fmt.Sprintf("services/label/%s", url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build label request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute label request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "label request failed")
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read label response")
	}
	return pdf, nil
}

// doJSON executes one JSON request, retrying transient failures (transport
// errors and 5xx responses) with capped exponential backoff.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal courier request")
		}
		payload = encoded
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build courier request")
		}
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		c.setHeaders(httpReq)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute courier request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= http.StatusInternalServerError {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "courier request failed"))
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
			return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "courier request failed")
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode courier response")
		}
		return nil
	})
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set(tokenHeader, c.token)
	if c.partnerCode != "" {
		req.Header.Set(clientSourceHeader, c.partnerCode)
	}
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
