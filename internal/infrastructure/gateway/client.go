package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"merchant-sim/internal/domain/entities"
	domainerrors "merchant-sim/internal/domain/errors"
)

const (
	// ResponseCodeApproved is the backend response code denoting approval
	ResponseCodeApproved = "0000"

	// saleRetryAttempts bounds retransmission of a sale request on
	// timeout-class transport failures
	saleRetryAttempts = 3
)

// Client is a stateless facade over the transaction backend
type Client struct {
	baseURL    string
	appVersion string
	client     *http.Client
}

// NewClient creates a new transaction gateway client
func NewClient(baseURL, appVersion string) *Client {
	return &Client{
		baseURL:    baseURL,
		appVersion: appVersion,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type transactionRequest struct {
	RequestID         string            `json:"requestId"`
	MerchantID        string            `json:"merchantId"`
	EstateID          string            `json:"estateId"`
	DeviceID          string            `json:"deviceId"`
	AppVersion        string            `json:"appVersion"`
	Timestamp         time.Time         `json:"timestamp"`
	TransactionNumber int               `json:"transactionNumber,omitempty"`
	Amount            float64           `json:"amount,omitempty"`
	Step              string            `json:"step,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type transactionResponse struct {
	Authorised   bool   `json:"authorised"`
	ResponseCode string `json:"responseCode"`
	Message      string `json:"message"`
}

// LogonResult is the outcome of a daily logon transaction
type LogonResult struct {
	Authorised   bool
	ResponseCode string
}

// SaleResult is the outcome of a sale
type SaleResult struct {
	Authorised   bool
	ResponseCode string
}

// DepositResult is the outcome of an account deposit
type DepositResult struct {
	Authorised   bool
	ResponseCode string
}

// ReconciliationResult is the outcome of an end-of-day reconciliation
type ReconciliationResult struct {
	Authorised   bool
	ResponseCode string
}

func (c *Client) newRequest(cfg entities.MerchantConfig) transactionRequest {
	return transactionRequest{
		RequestID:  uuid.New().String(),
		MerchantID: cfg.MerchantID,
		EstateID:   cfg.EstateID,
		DeviceID:   cfg.DeviceID,
		AppVersion: c.appVersion,
		Timestamp:  time.Now().UTC(),
	}
}

// SendLogon sends the daily logon transaction
func (c *Client) SendLogon(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, transactionNumber int) (*LogonResult, error) {
	req := c.newRequest(cfg)
	req.TransactionNumber = transactionNumber

	resp, err := c.post(ctx, "/transactions/logon", cred, req)
	if err != nil {
		return nil, err
	}
	return &LogonResult{Authorised: resp.Authorised, ResponseCode: resp.ResponseCode}, nil
}

// SendSale sends one sale as its ordered request steps. Bill payments run a
// verification step first; a failed or declined step aborts the remainder.
// Timeout-class transport failures are retried per step up to
// saleRetryAttempts; any other failure surfaces immediately.
func (c *Client) SendSale(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, product entities.Product, value float64, transactionNumber int) (*SaleResult, error) {
	reference := NewSaleReference(product.Type)
	steps := BuildSaleRequests(product, value, reference)

	result := &SaleResult{}
	for _, step := range steps {
		req := c.newRequest(cfg)
		req.TransactionNumber = transactionNumber
		req.Amount = step.Amount
		req.Step = step.Step
		req.Metadata = step.Metadata

		resp, err := c.postWithRetry(ctx, "/transactions/sale", cred, req)
		if err != nil {
			return nil, err
		}

		result.Authorised = resp.Authorised
		result.ResponseCode = resp.ResponseCode
		if !resp.Authorised {
			return result, nil
		}
	}
	return result, nil
}

// SendDeposit sends an account top-up deposit
func (c *Client) SendDeposit(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, amount float64) (*DepositResult, error) {
	req := c.newRequest(cfg)
	req.Amount = amount

	resp, err := c.post(ctx, "/transactions/deposit", cred, req)
	if err != nil {
		return nil, err
	}
	return &DepositResult{Authorised: resp.Authorised, ResponseCode: resp.ResponseCode}, nil
}

type reconciliationRequest struct {
	transactionRequest
	TotalCount int                      `json:"totalCount"`
	TotalValue float64                  `json:"totalValue"`
	Operators  []entities.OperatorTotal `json:"operators"`
}

// SendReconciliation settles the accumulated operator totals with the backend
func (c *Client) SendReconciliation(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential, totals []entities.OperatorTotal) (*ReconciliationResult, error) {
	count, value := entities.SumTotals(totals)
	req := reconciliationRequest{
		transactionRequest: c.newRequest(cfg),
		TotalCount:         count,
		TotalValue:         value,
		Operators:          totals,
	}

	resp, err := c.do(ctx, http.MethodPost, "/transactions/reconciliation", cred, req)
	if err != nil {
		return nil, err
	}
	return &ReconciliationResult{Authorised: resp.Authorised, ResponseCode: resp.ResponseCode}, nil
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// GetBalance fetches the merchant's current account balance from the backend
func (c *Client) GetBalance(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential) (float64, error) {
	body, err := c.get(ctx, "/merchants/"+url.PathEscape(cfg.MerchantID)+"/balance", cred)
	if err != nil {
		return 0, err
	}

	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to parse balance response: %w", err)
	}
	return resp.Balance, nil
}

type catalogResponse struct {
	Contracts []entities.ContractCatalog `json:"contracts"`
}

// GetProductCatalog fetches the backend product catalog filtered down to the
// merchant's eligible contracts
func (c *Client) GetProductCatalog(ctx context.Context, cfg entities.MerchantConfig, cred *entities.Credential) ([]entities.Product, error) {
	path := "/merchants/" + url.PathEscape(cfg.MerchantID) + "/catalog"
	if len(cfg.ContractIDs) > 0 {
		path += "?contracts=" + url.QueryEscape(strings.Join(cfg.ContractIDs, ","))
	}

	body, err := c.get(ctx, path, cred)
	if err != nil {
		return nil, err
	}

	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}
	return entities.FilterCatalog(resp.Contracts, cfg.ContractIDs), nil
}

func (c *Client) post(ctx context.Context, path string, cred *entities.Credential, payload interface{}) (*transactionResponse, error) {
	return c.do(ctx, http.MethodPost, path, cred, payload)
}

func (c *Client) postWithRetry(ctx context.Context, path string, cred *entities.Credential, payload interface{}) (*transactionResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= saleRetryAttempts; attempt++ {
		resp, err := c.do(ctx, http.MethodPost, path, cred, payload)
		if err == nil {
			return resp, nil
		}
		if !isTimeout(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", domainerrors.ErrGatewayTimeout, lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, cred *entities.Credential, payload interface{}) (*transactionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: gateway rejected bearer token", domainerrors.ErrAuthFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var txResp transactionResponse
	if err := json.Unmarshal(respBody, &txResp); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return &txResp, nil
}

func (c *Client) get(ctx context.Context, path string, cred *entities.Credential) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: gateway rejected bearer token", domainerrors.ErrAuthFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return respBody, nil
}

// isTimeout reports whether err belongs to the cancellable-timeout class of
// transport failures that warrant a sale retransmission
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
