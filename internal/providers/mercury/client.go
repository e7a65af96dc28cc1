// Package mercury is a read-only client for the bank provider's REST API.
package mercury

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

	"github.com/shopspring/decimal"

	"findash/internal/core"
)

const (
	DefaultBaseURL = "https://backend.mercury.com/api/v1"

	// PageSize is the transactions page size; a shorter page is the last.
	PageSize = 500

	// The provider requires an explicit window; this one covers all history.
	historyStart = "2020-01-01"
	historyEnd   = "2030-12-31"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("mercury: not found")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercury: status %d: %s", e.StatusCode, e.Body)
}

type Account struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Kind             string          `json:"kind"`
	Status           string          `json:"status"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// Transaction is the provider's record as returned on the wire.
type Transaction struct {
	ID                   string          `json:"id"`
	Amount               decimal.Decimal `json:"amount"`
	CounterpartyName     string          `json:"counterpartyName"`
	CounterpartyNickname string          `json:"counterpartyNickname"`
	Note                 string          `json:"note"`
	Kind                 string          `json:"kind"`
	Status               string          `json:"status"`
	CreatedAt            string          `json:"createdAt"`
	PostedDate           string          `json:"postedDate"`
}

// Normalize converts t into the cache shape. The nickname stands in when
// the counterparty name is blank.
func (t Transaction) Normalize(accountID string) core.BankTransaction {
	name := t.CounterpartyName
	if name == "" {
		name = t.CounterpartyNickname
	}
	out := core.BankTransaction{
		ID:               t.ID,
		Amount:           core.MoneyFromDecimal(t.Amount),
		CounterpartyName: name,
		Note:             t.Note,
		Kind:             t.Kind,
		Status:           t.Status,
		AccountID:        accountID,
	}
	if ts, err := time.Parse(time.RFC3339Nano, t.CreatedAt); err == nil {
		out.CreatedAt = ts.UTC()
	}
	if len(t.PostedDate) >= 10 {
		if d, err := core.ParseDate(t.PostedDate[:10]); err == nil {
			out.PostedDate = d
		}
	}
	return out
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client. A nil httpClient gets a 30 second timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
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
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListAccounts returns the deposit accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var body struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.get(ctx, "/accounts", nil, &body); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return body.Accounts, nil
}

// ListCreditAccounts returns credit card accounts. Organisations without
// the credit product get a 404, which means none.
func (c *Client) ListCreditAccounts(ctx context.Context) ([]Account, error) {
	var body struct {
		Accounts []Account `json:"accounts"`
	}
	err := c.get(ctx, "/credit", nil, &body)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list credit accounts: %w", err)
	}
	return body.Accounts, nil
}

// AccountIDs lists deposit and credit account ids, deposit accounts first.
func (c *Client) AccountIDs(ctx context.Context) ([]string, error) {
	accounts, err := c.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	credit, err := c.ListCreditAccounts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accounts)+len(credit))
	for _, a := range append(accounts, credit...) {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// ListTransactions pages through every transaction of one account.
func (c *Client) ListTransactions(ctx context.Context, accountID string) ([]core.BankTransaction, error) {
	var out []core.BankTransaction
	for offset := 0; ; offset += PageSize {
		q := url.Values{}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(PageSize))
		q.Set("start", historyStart)
		q.Set("end", historyEnd)

		var page struct {
			Transactions []Transaction `json:"transactions"`
		}
		if err := c.get(ctx, "/account/"+url.PathEscape(accountID)+"/transactions", q, &page); err != nil {
			return out, fmt.Errorf("list transactions for %s at offset %d: %w", accountID, offset, err)
		}
		for _, t := range page.Transactions {
			out = append(out, t.Normalize(accountID))
		}
		if len(page.Transactions) < PageSize {
			return out, nil
		}
	}
}

// TotalBalance sums the current balance of the deposit accounts.
func (c *Client) TotalBalance(ctx context.Context) (core.Money, error) {
	accounts, err := c.ListAccounts(ctx)
	if err != nil {
		return core.Money{}, err
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.CurrentBalance)
	}
	return core.MoneyFromDecimal(total), nil
}
