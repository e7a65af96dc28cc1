// Package stripe is a read-only client for the invoicing provider's REST
// API, covering invoices, subscriptions and balance.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"findash/internal/core"
)

const (
	DefaultBaseURL = "https://api.stripe.com/v1"

	// PageSize is the list page size; the provider caps it at 100.
	PageSize = 100
)

var ErrNotFound = errors.New("stripe: not found")

// APIError is a non-2xx response carrying the provider's error message.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("stripe: status %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("stripe: status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client. A nil httpClient gets a 30 second timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var envelope struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// list walks a cursor-paginated collection, handing each raw page to fn.
// It stops when the provider reports no more data or returns a short page.
func list[T interface{ objectID() string }](ctx context.Context, c *Client, path string, query url.Values, fn func([]T) error) error {
	cursor := ""
	for {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(PageSize))
		if cursor != "" {
			q.Set("starting_after", cursor)
		}

		var page struct {
			Data    []T  `json:"data"`
			HasMore bool `json:"has_more"`
		}
		if err := c.get(ctx, path, q, &page); err != nil {
			return err
		}
		if err := fn(page.Data); err != nil {
			return err
		}
		if !page.HasMore || len(page.Data) < PageSize || len(page.Data) == 0 {
			return nil
		}
		cursor = page.Data[len(page.Data)-1].objectID()
	}
}

// ListInvoices streams every invoice, one page at a time, to fn. Records
// already handed over are kept by the caller when a later page fails.
func (c *Client) ListInvoices(ctx context.Context, fn func(core.Invoice) error) error {
	err := list(ctx, c, "/invoices", nil, func(page []Invoice) error {
		for _, inv := range page {
			if err := fn(inv.Normalize()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	return nil
}

// ListActiveSubscriptions streams active subscriptions with the customer
// expanded so names need no extra calls.
func (c *Client) ListActiveSubscriptions(ctx context.Context, fn func(core.Subscription) error) error {
	q := url.Values{}
	q.Set("status", "active")
	q.Add("expand[]", "data.customer")
	err := list(ctx, c, "/subscriptions", q, func(page []Subscription) error {
		for _, sub := range page {
			if err := fn(sub.Normalize()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	return nil
}

// GetInvoice fetches one invoice directly from the provider.
func (c *Client) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	var inv Invoice
	if err := c.get(ctx, "/invoices/"+url.PathEscape(id), nil, &inv); err != nil {
		if errors.Is(err, ErrNotFound) {
			return core.Invoice{}, fmt.Errorf("get invoice %s: %w", id, core.ErrNotFound)
		}
		return core.Invoice{}, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return inv.Normalize(), nil
}

// Balance returns the available and pending balance summed over currencies.
func (c *Client) Balance(ctx context.Context) (available, pending core.Money, err error) {
	var body struct {
		Available []struct {
			Amount int64 `json:"amount"`
		} `json:"available"`
		Pending []struct {
			Amount int64 `json:"amount"`
		} `json:"pending"`
	}
	if err := c.get(ctx, "/balance", nil, &body); err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("get balance: %w", err)
	}
	for _, b := range body.Available {
		available = available.Add(core.Money{Cents: b.Amount})
	}
	for _, b := range body.Pending {
		pending = pending.Add(core.Money{Cents: b.Amount})
	}
	return available, pending, nil
}
