package aptos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/songzhibin97/supercircle/internal/utils/request"
)

// AptosCoinType is the native coin type.
const AptosCoinType = "0x1::aptos_coin::AptosCoin"

// NodeURL returns the public fullnode REST endpoint for a network name.
// Unknown names fall back to testnet, matching the front-end constant.
func NodeURL(network string) string {
	switch strings.ToLower(network) {
	case "mainnet":
		return "https://api.mainnet.aptoslabs.com/v1"
	case "devnet", "":
		return "https://api.devnet.aptoslabs.com/v1"
	default:
		return "https://api.testnet.aptoslabs.com/v1"
	}
}

// Client talks to one Aptos fullnode over REST.
type Client struct {
	baseURL      string
	httpClient   *resty.Client
	submitClient *resty.Client
	pollInterval time.Duration
	waitTimeout  time.Duration
	maxGasAmount uint64
	txnTTL       time.Duration
	now          func() time.Time
}

// NewClient creates a client for the given node URL (including the /v1 suffix).
func NewClient(nodeURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(nodeURL, "/"),
		httpClient:   request.Request,
		submitClient: request.Once,
		pollInterval: time.Second,
		waitTimeout:  60 * time.Second,
		maxGasAmount: 200_000,
		txnTTL:       60 * time.Second,
		now:          time.Now,
	}
}

// BaseURL returns the node endpoint this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// View calls a Move view function and returns its raw return values.
func (c *Client) View(ctx context.Context, req ViewRequest) ([]json.RawMessage, error) {
	if req.TypeArguments == nil {
		req.TypeArguments = []string{}
	}
	if req.Arguments == nil {
		req.Arguments = []any{}
	}

	var values []json.RawMessage
	if err := c.post(ctx, "/view", req, &values); err != nil {
		return nil, fmt.Errorf("view %s: %w", req.Function, err)
	}
	return values, nil
}

// AccountResource fetches a single resource stored under an account.
func (c *Client) AccountResource(ctx context.Context, address, resourceType string) (*Resource, error) {
	path := fmt.Sprintf("/accounts/%s/resource/%s", address, url.PathEscape(resourceType))

	var resource Resource
	if err := c.get(ctx, path, &resource); err != nil {
		return nil, fmt.Errorf("get resource %s: %w", resourceType, err)
	}
	return &resource, nil
}

// Account returns the sequence number and authentication key of an account.
func (c *Client) Account(ctx context.Context, address string) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.get(ctx, "/accounts/"+address, &info); err != nil {
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	return &info, nil
}

// LedgerInfo returns chain id and ledger version.
func (c *Client) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	var info LedgerInfo
	if err := c.get(ctx, "", &info); err != nil {
		return nil, fmt.Errorf("get ledger info: %w", err)
	}
	return &info, nil
}

// EstimateGasPrice returns the node's gas unit price estimate.
func (c *Client) EstimateGasPrice(ctx context.Context) (*GasEstimate, error) {
	var estimate GasEstimate
	if err := c.get(ctx, "/estimate_gas_price", &estimate); err != nil {
		return nil, fmt.Errorf("estimate gas price: %w", err)
	}
	return &estimate, nil
}

// CoinBalance returns the raw subunit balance of coinType held by address.
func (c *Client) CoinBalance(ctx context.Context, address, coinType string) (uint64, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/accounts/%s/balance/%s", c.baseURL, address, coinType))
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	// the endpoint answers a bare JSON number, some nodes quote it
	raw := strings.Trim(strings.TrimSpace(string(resp.Body())), `"`)
	balance, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance %q: %w", raw, err)
	}
	return balance, nil
}

// TransactionByHash fetches a transaction, pending or committed.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	var txn Transaction
	if err := c.get(ctx, "/transactions/by_hash/"+hash, &txn); err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", hash, err)
	}
	return &txn, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.httpClient.R().SetContext(ctx).Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.postWith(ctx, c.httpClient, path, body, out)
}

func (c *Client) postWith(ctx context.Context, client *resty.Client, path string, body, out any) error {
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func checkResponse(resp *resty.Response) error {
	status := resp.StatusCode()
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(resp.Body()))
	}

	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, apiErr.Error())
	}
	return apiErr
}
