package aptos

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/songzhibin97/supercircle/internal/utils/request"
)

// FaucetURL returns the faucet endpoint for devnet/testnet; mainnet has none.
func FaucetURL(network string) (string, error) {
	switch strings.ToLower(network) {
	case "devnet", "":
		return "https://faucet.devnet.aptoslabs.com", nil
	case "testnet":
		return "https://faucet.testnet.aptoslabs.com", nil
	default:
		return "", fmt.Errorf("no faucet available for network %q", network)
	}
}

// Faucet mints test coins.
type Faucet struct {
	baseURL    string
	httpClient *resty.Client
}

func NewFaucet(baseURL string) *Faucet {
	return &Faucet{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: request.Request,
	}
}

// Fund mints octa into address and returns the funding transaction hashes.
func (f *Faucet) Fund(ctx context.Context, address string, octa uint64) ([]string, error) {
	var hashes []string
	resp, err := f.httpClient.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		SetQueryParam("amount", fmt.Sprintf("%d", octa)).
		SetResult(&hashes).
		Post(f.baseURL + "/mint")
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("fund account: %w", err)
	}
	return hashes, nil
}
