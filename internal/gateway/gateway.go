// Package gateway talks to the hosted payment processor. It only builds and
// sends the initiation request; it never touches orders.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"farmtable/internal/config"
	"farmtable/internal/domain"
	"github.com/shopspring/decimal"
)

const tranDelimiter = "_"

// NewTransactionID builds "{prefix}_{orderID}_{unixMillis}". The id is stored
// in payment_attempts and never parsed back.
func NewTransactionID(prefix, orderID string, now time.Time) (string, error) {
	if strings.TrimSpace(orderID) == "" {
		return "", fmt.Errorf("transaction id: %w", domain.ErrMissingOrderIdentifier)
	}
	if strings.Contains(orderID, tranDelimiter) {
		return "", fmt.Errorf("transaction id: order id %q contains %q", orderID, tranDelimiter)
	}
	return prefix + tranDelimiter + orderID + tranDelimiter + strconv.FormatInt(now.UnixMilli(), 10), nil
}

// InitiateRequest is one payment-initiation call.
type InitiateRequest struct {
	TranID      string
	OrderID     string
	AmountCents int64
	Currency    string
	Customer    domain.DeliveryInfo
	ProductName string
}

// Callbacks are the absolute URLs the processor redirects or posts to.
type Callbacks struct {
	Success string
	Fail    string
	Cancel  string
	IPN     string
}

type initiateResponse struct {
	Status         string `json:"status"`
	GatewayPageURL string `json:"GatewayPageURL"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
}

// Client posts initiation requests to the processor.
type Client struct {
	cfg        config.GatewayConfig
	publicBase string
	httpClient *http.Client
	logger     *log.Logger
}

func NewClient(cfg config.GatewayConfig, publicBaseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		cfg:        cfg,
		publicBase: strings.TrimRight(publicBaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// CallbacksFor returns the callback URLs for an order. The order id is
// routed in the path so a redirect can be tied to its order without parsing tran_id.
func (c *Client) CallbacksFor(orderID string) Callbacks {
	base := c.publicBase + "/api/payments"
	id := url.PathEscape(orderID)
	return Callbacks{
		Success: base + "/success/" + id,
		Fail:    base + "/fail/" + id,
		Cancel:  base + "/cancel/" + id,
		IPN:     base + "/ipn",
	}
}

// FormatAmount renders minor units as the processor's decimal amount.
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Initiate returns the processor-hosted page the buyer must be redirected to.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	cb := c.CallbacksFor(req.OrderID)
	productName := req.ProductName
	if productName == "" {
		productName = "Farm produce"
	}
	form := url.Values{
		"store_id":         {c.cfg.StoreID},
		"store_passwd":     {c.cfg.StorePassword},
		"total_amount":     {FormatAmount(req.AmountCents)},
		"currency":         {req.Currency},
		"tran_id":          {req.TranID},
		"success_url":      {cb.Success},
		"fail_url":         {cb.Fail},
		"cancel_url":       {cb.Cancel},
		"ipn_url":          {cb.IPN},
		"cus_name":         {fallback(req.Customer.Name, "Customer")},
		"cus_email":        {fallback(req.Customer.Email, "customer@example.com")},
		"cus_add1":         {fallback(req.Customer.Address, "N/A")},
		"cus_phone":        {fallback(req.Customer.Phone, "N/A")},
		"cus_city":         {"N/A"},
		"cus_country":      {"Bangladesh"},
		"shipping_method":  {"NO"},
		"product_name":     {productName},
		"product_category": {"Agriculture"},
		"product_profile":  {"physical-goods"},
		"value_a":          {req.OrderID},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", domain.ErrGatewayInit, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Printf("gateway: initiate tran_id=%s error=%v", req.TranID, err)
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayInit, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrGatewayInit, err)
	}
	if resp.StatusCode/100 != 2 {
		c.logger.Printf("gateway: initiate tran_id=%s http_status=%d", req.TranID, resp.StatusCode)
		return "", fmt.Errorf("%w: processor responded %d", domain.ErrGatewayInit, resp.StatusCode)
	}

	var out initiateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrGatewayInit, err)
	}
	if !strings.EqualFold(out.Status, "SUCCESS") || strings.TrimSpace(out.GatewayPageURL) == "" {
		c.logger.Printf("gateway: initiate tran_id=%s status=%s reason=%q", req.TranID, out.Status, out.FailedReason)
		reason := out.FailedReason
		if reason == "" {
			reason = "no redirect url"
		}
		return "", fmt.Errorf("%w: %s", domain.ErrGatewayInit, reason)
	}
	c.logger.Printf("gateway: initiated tran_id=%s order_id=%s amount=%s %s", req.TranID, req.OrderID, FormatAmount(req.AmountCents), req.Currency)
	return out.GatewayPageURL, nil
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
