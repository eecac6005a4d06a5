// Package quickbooks reads invoices and customers from the QuickBooks Online
// accounting API.
package quickbooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/odyssey-erp/deliveryops/internal/delivery"
	"github.com/odyssey-erp/deliveryops/internal/platform/httpx"
)

const (
	invoiceQuery     = "SELECT * FROM Invoice ORDER BY TxnDate DESC"
	customerQuery    = "SELECT * FROM Customer"
	defaultPageSize  = 100
	maxPageSize      = 1000
	minorVersion     = "65"
	maxErrorBodySize = 64 << 10
)

// Credentials identify the company and authorise calls. They are passed
// explicitly to each client.
type Credentials struct {
	AccessToken string
	RealmID     string
}

// Config configures the API client.
type Config struct {
	BaseURL     string
	Credentials Credentials
	PageSize    int
	Timeout     time.Duration
}

// Client queries the accounting API.
type Client struct {
	baseURL    string
	creds      Credentials
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a client. A nil logger falls back to slog.Default.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		creds:      cfg.Credentials,
		pageSize:   pageSize,
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchInvoices returns every invoice, newest first. CustomerName is left for
// the caller to resolve against the customer directory.
func (c *Client) FetchInvoices(ctx context.Context) ([]delivery.Invoice, error) {
	var out []delivery.Invoice
	err := c.paginate(ctx, invoiceQuery, func(page queryResponse) int {
		for _, inv := range page.Invoice {
			out = append(out, inv.toDomain())
		}
		return len(page.Invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("quickbooks: fetch invoices: %w", err)
	}
	c.logger.Debug("invoices fetched", slog.Int("count", len(out)))
	return out, nil
}

// FetchCustomers returns the full customer directory.
func (c *Client) FetchCustomers(ctx context.Context) ([]delivery.Customer, error) {
	var out []delivery.Customer
	err := c.paginate(ctx, customerQuery, func(page queryResponse) int {
		for _, cust := range page.Customer {
			out = append(out, cust.toDomain())
		}
		return len(page.Customer)
	})
	if err != nil {
		return nil, fmt.Errorf("quickbooks: fetch customers: %w", err)
	}
	c.logger.Debug("customers fetched", slog.Int("count", len(out)))
	return out, nil
}

// paginate walks STARTPOSITION windows until a page comes back short.
func (c *Client) paginate(ctx context.Context, base string, consume func(queryResponse) int) error {
	start := 1
	for {
		query := fmt.Sprintf("%s STARTPOSITION %d MAXRESULTS %d", base, start, c.pageSize)
		page, err := c.query(ctx, query)
		if err != nil {
			return err
		}
		n := consume(page)
		if n < c.pageSize {
			return nil
		}
		start += n
	}
}

func (c *Client) query(ctx context.Context, query string) (queryResponse, error) {
	if c.creds.AccessToken == "" || c.creds.RealmID == "" {
		return queryResponse{}, fmt.Errorf("missing access token or realm id: %w", httpx.ErrUnauthorized)
	}
	endpoint := fmt.Sprintf("%s/v3/company/%s/query?%s", c.baseURL, url.PathEscape(c.creds.RealmID), url.Values{
		"query":        {query},
		"minorversion": {minorVersion},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return queryResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return queryResponse{}, ctxErr
		}
		return queryResponse{}, fmt.Errorf("%w: %w", httpx.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return queryResponse{}, fmt.Errorf("status %d: %w", resp.StatusCode, httpx.ErrUnauthorized)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		msg := faultMessage(body)
		c.logger.Warn("quickbooks query failed", slog.Int("status", resp.StatusCode), slog.String("fault", msg))
		return queryResponse{}, fmt.Errorf("status %d: %s: %w", resp.StatusCode, msg, httpx.ErrUpstream)
	}

	var envelope queryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return queryResponse{}, fmt.Errorf("decode response: %w: %w", httpx.ErrUpstream, err)
	}
	return envelope.QueryResponse, nil
}

func faultMessage(body []byte) string {
	var fault faultEnvelope
	if err := json.Unmarshal(body, &fault); err != nil || len(fault.Fault.Error) == 0 {
		return strings.TrimSpace(string(body))
	}
	parts := make([]string, 0, len(fault.Fault.Error))
	for _, e := range fault.Fault.Error {
		msg := e.Message
		if e.Detail != "" {
			msg += " (" + e.Detail + ")"
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

// IsAuthError reports whether err means the caller must re-authenticate.
func IsAuthError(err error) bool {
	return errors.Is(err, httpx.ErrUnauthorized)
}
