package aptos

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const ed25519SignatureType = "ed25519_signature"

// BuildTransaction fills sequence number, gas price and expiry for sender.
func (c *Client) BuildTransaction(ctx context.Context, sender string, payload *EntryFunctionPayload) (*TransactionRequest, error) {
	account, err := c.Account(ctx, sender)
	if err != nil {
		return nil, err
	}

	gas, err := c.EstimateGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	return &TransactionRequest{
		Sender:                  sender,
		SequenceNumber:          strconv.FormatUint(account.SequenceNumber, 10),
		MaxGasAmount:            strconv.FormatUint(c.maxGasAmount, 10),
		GasUnitPrice:            strconv.FormatUint(gas.GasEstimate, 10),
		ExpirationTimestampSecs: strconv.FormatInt(c.now().Add(c.txnTTL).Unix(), 10),
		Payload:                 payload,
	}, nil
}

// EncodeSubmission asks the node for the signing message of an unsigned transaction.
func (c *Client) EncodeSubmission(ctx context.Context, txn *TransactionRequest) ([]byte, error) {
	var encoded string
	if err := c.post(ctx, "/transactions/encode_submission", txn, &encoded); err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	message, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode signing message: %w", err)
	}
	return message, nil
}

// SubmitTransaction posts a signed transaction exactly once.
func (c *Client) SubmitTransaction(ctx context.Context, txn *TransactionRequest) (*PendingTransaction, error) {
	if txn.Signature == nil {
		return nil, errors.New("submit transaction: missing signature")
	}

	var pending PendingTransaction
	if err := c.postWith(ctx, c.submitClient, "/transactions", txn, &pending); err != nil {
		return nil, fmt.Errorf("submit transaction: %w", err)
	}
	return &pending, nil
}

// SignAndSubmit builds, signs and submits payload on behalf of signer.
func (c *Client) SignAndSubmit(ctx context.Context, signer Signer, payload *EntryFunctionPayload) (*PendingTransaction, error) {
	txn, err := c.BuildTransaction(ctx, signer.Address(), payload)
	if err != nil {
		return nil, err
	}

	message, err := c.EncodeSubmission(ctx, txn)
	if err != nil {
		return nil, err
	}

	txn.Signature = &Signature{
		Type:      ed25519SignatureType,
		PublicKey: signer.PublicKeyHex(),
		Signature: "0x" + hex.EncodeToString(signer.Sign(message)),
	}

	return c.SubmitTransaction(ctx, txn)
}

// SimulateTransaction dry-runs payload for signer. The node requires an
// invalid signature for simulation, so an all-zero one is sent.
func (c *Client) SimulateTransaction(ctx context.Context, signer Signer, payload *EntryFunctionPayload) ([]Transaction, error) {
	txn, err := c.BuildTransaction(ctx, signer.Address(), payload)
	if err != nil {
		return nil, err
	}

	txn.Signature = &Signature{
		Type:      ed25519SignatureType,
		PublicKey: signer.PublicKeyHex(),
		Signature: "0x" + strings.Repeat("00", 64),
	}

	var result []Transaction
	if err := c.post(ctx, "/transactions/simulate", txn, &result); err != nil {
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	return result, nil
}

// WaitForTransaction polls until hash is committed. A committed but failed
// transaction is returned together with ErrTransactionFailed.
func (c *Client) WaitForTransaction(ctx context.Context, hash string) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		txn, err := c.TransactionByHash(ctx, hash)
		switch {
		case err == nil && !txn.IsPending():
			if !txn.Success {
				return txn, fmt.Errorf("%w: %s: %s", ErrTransactionFailed, hash, txn.VMStatus)
			}
			return txn, nil
		case err != nil && ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %s", ErrTransactionPending, hash)
		case err != nil && !errors.Is(err, ErrResourceNotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrTransactionPending, hash)
		case <-ticker.C:
		}
	}
}

// SubmitAndWait signs, submits and waits for confirmation.
func (c *Client) SubmitAndWait(ctx context.Context, signer Signer, payload *EntryFunctionPayload) (*Transaction, error) {
	pending, err := c.SignAndSubmit(ctx, signer, payload)
	if err != nil {
		return nil, err
	}
	return c.WaitForTransaction(ctx, pending.Hash)
}
