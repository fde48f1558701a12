package aptos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// MultiNodeClient implements Node by trying several fullnodes in order.
// A definitive answer (success, 404, other 4xx) from any node is returned as is;
// transport failures and 5xx move on to the next node.
type MultiNodeClient struct {
	nodes  []Node
	logger *slog.Logger
}

func NewMultiNodeClient(nodes []Node, logger *slog.Logger) *MultiNodeClient {
	return &MultiNodeClient{
		nodes:  nodes,
		logger: logger,
	}
}

// BaseURL lists the node endpoints.
func (m *MultiNodeClient) BaseURL() string {
	urls := make([]string, 0, len(m.nodes))
	for _, node := range m.nodes {
		urls = append(urls, node.BaseURL())
	}
	return strings.Join(urls, ",")
}

// View implements Node
func (m *MultiNodeClient) View(ctx context.Context, req ViewRequest) ([]json.RawMessage, error) {
	return tryNodes(m, "view", func(n Node) ([]json.RawMessage, error) {
		return n.View(ctx, req)
	})
}

// AccountResource implements Node
func (m *MultiNodeClient) AccountResource(ctx context.Context, address, resourceType string) (*Resource, error) {
	return tryNodes(m, "account resource", func(n Node) (*Resource, error) {
		return n.AccountResource(ctx, address, resourceType)
	})
}

// CoinBalance implements Node
func (m *MultiNodeClient) CoinBalance(ctx context.Context, address, coinType string) (uint64, error) {
	return tryNodes(m, "coin balance", func(n Node) (uint64, error) {
		return n.CoinBalance(ctx, address, coinType)
	})
}

// TransactionByHash implements Node
func (m *MultiNodeClient) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	return tryNodes(m, "transaction by hash", func(n Node) (*Transaction, error) {
		return n.TransactionByHash(ctx, hash)
	})
}

func tryNodes[T any](m *MultiNodeClient, op string, fn func(Node) (T, error)) (T, error) {
	var zero T
	var errs []error

	for _, node := range m.nodes {
		result, err := fn(node)
		if err == nil {
			return result, nil
		}
		if isDefinitive(err) {
			return zero, err
		}
		m.logger.Error("node request failed", "op", op, "node", node.BaseURL(), "error", err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return zero, fmt.Errorf("%s: no nodes configured", op)
	}
	return zero, fmt.Errorf("%s failed on all nodes: %w", op, errors.Join(errs...))
}

func isDefinitive(err error) bool {
	if errors.Is(err, ErrResourceNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError &&
			apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}
