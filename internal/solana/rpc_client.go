package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultCommitment   = "confirmed"
	DefaultPollInterval = 500 * time.Millisecond
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint     string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	commitment   string
	pollInterval time.Duration
	requestID    atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithCommitment sets the commitment level passed to RPC methods.
func WithCommitment(level string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = level
	}
}

// WithPollInterval sets the confirmation polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.pollInterval = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		commitment:   DefaultCommitment,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}

	if result.Value.Blockhash == "" {
		return nil, fmt.Errorf("empty blockhash in response")
	}

	return &LatestBlockhash{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// RequestAirdrop requests lamports for an account on a test network.
// Returns the airdrop transaction signature.
func (c *HTTPClient) RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error) {
	params := []interface{}{
		pubkey,
		lamports,
		map[string]interface{}{"commitment": c.commitment},
	}

	var signature string
	if err := c.call(ctx, "requestAirdrop", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// SendTransaction submits a base64-encoded signed transaction and returns
// its signature.
func (c *HTTPClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": c.commitment,
		},
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// signatureStatus is a single entry of getSignatureStatuses.
type signatureStatus struct {
	Slot               int64       `json:"slot"`
	Confirmations      *int64      `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// ConfirmTransaction reports whether a signature has reached the confirmed
// commitment level. A transaction that landed with an error is reported as
// failed, not as unconfirmed.
func (c *HTTPClient) ConfirmTransaction(ctx context.Context, signature string) (bool, error) {
	params := []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": true},
	}

	var result struct {
		Value []*signatureStatus `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return false, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return false, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction %s failed: %v", signature, status.Err)
	}

	switch status.ConfirmationStatus {
	case "confirmed", "finalized":
		return true, nil
	}
	return false, nil
}

// WaitForConfirmation polls until the signature is confirmed or the context
// is done.
func (c *HTTPClient) WaitForConfirmation(ctx context.Context, signature string) error {
	for {
		confirmed, err := c.ConfirmTransaction(ctx, signature)
		if err != nil {
			return err
		}
		if confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation of %s: %w", signature, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// GetMinimumBalanceForRentExemption returns the lamports needed to make an
// account of the given size rent exempt.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error) {
	params := []interface{}{dataLen}

	var lamports uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", params, &lamports); err != nil {
		return 0, err
	}
	return lamports, nil
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetBalance retrieves an account's lamport balance.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance retrieves an SPL token account balance.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, pubkey string) (*TokenAmount, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value struct {
			Amount         string `json:"amount"`
			Decimals       uint8  `json:"decimals"`
			UIAmountString string `json:"uiAmountString"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return nil, err
	}

	return &TokenAmount{
		Amount:         result.Value.Amount,
		Decimals:       result.Value.Decimals,
		UIAmountString: result.Value.UIAmountString,
	}, nil
}

// BaseUnits parses the raw base-unit amount.
func (a *TokenAmount) BaseUnits() (uint64, error) {
	v, err := strconv.ParseUint(a.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", a.Amount, err)
	}
	return v, nil
}

// GetTransaction retrieves a transaction by signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result.Slot == 0 && result.BlockTime == nil {
		// Transaction not found
		return nil, nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
	}

	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}

	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:         result.Meta.Err,
			LogMessages: result.Meta.LogMessages,
		}
	}

	if result.Transaction != nil && result.Transaction.Message != nil {
		tx.Message = &TransactionMessage{
			AccountKeys: result.Transaction.Message.AccountKeys,
		}
	}

	return tx, nil
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err         interface{} `json:"err"`
	LogMessages []string    `json:"logMessages"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}
