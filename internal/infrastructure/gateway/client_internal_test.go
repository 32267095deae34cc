package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-sim/internal/domain/entities"
	domainerrors "merchant-sim/internal/domain/errors"
)

var testConfig = entities.MerchantConfig{
	MerchantID: "M1",
	EstateID:   "E1",
	DeviceID:   "D1",
}

var testCred = &entities.Credential{
	AccessToken: "test-token",
	ExpiresAt:   time.Now().Add(time.Hour),
}

func TestClient_SendLogon(t *testing.T) {
	var gotPath string
	var gotReq transactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(transactionResponse{Authorised: true, ResponseCode: ResponseCodeApproved})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "merchant-sim/test")
	result, err := client.SendLogon(context.Background(), testConfig, testCred, 17)
	require.NoError(t, err)

	assert.True(t, result.Authorised)
	assert.Equal(t, ResponseCodeApproved, result.ResponseCode)
	assert.Equal(t, "/transactions/logon", gotPath)
	assert.Equal(t, "M1", gotReq.MerchantID)
	assert.Equal(t, "E1", gotReq.EstateID)
	assert.Equal(t, "D1", gotReq.DeviceID)
	assert.Equal(t, "merchant-sim/test", gotReq.AppVersion)
	assert.Equal(t, 17, gotReq.TransactionNumber)
	assert.NotEmpty(t, gotReq.RequestID)
}

func TestClient_SendSale_TopUp(t *testing.T) {
	var requests []transactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		json.NewEncoder(w).Encode(transactionResponse{Authorised: true, ResponseCode: ResponseCodeApproved})
	}))
	defer srv.Close()

	product := entities.Product{ProductID: "P1", OperatorID: "OP1", Type: entities.ProductTypeTopUp}
	client := NewClient(srv.URL, "merchant-sim/test")

	result, err := client.SendSale(context.Background(), testConfig, testCred, product, 50, 3)
	require.NoError(t, err)
	assert.True(t, result.Authorised)

	require.Len(t, requests, 1)
	assert.Equal(t, StepPayment, requests[0].Step)
	assert.Equal(t, 50.0, requests[0].Amount)
	assert.NotEmpty(t, requests[0].Metadata["msisdn"])
}

func TestClient_SendSale_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transactionResponse{Authorised: false, ResponseCode: "0051"})
	}))
	defer srv.Close()

	product := entities.Product{ProductID: "P1", OperatorID: "OP1", Type: entities.ProductTypeTopUp}
	client := NewClient(srv.URL, "merchant-sim/test")

	result, err := client.SendSale(context.Background(), testConfig, testCred, product, 5000, 3)
	require.NoError(t, err, "a business decline is a result, not an error")
	assert.False(t, result.Authorised)
	assert.Equal(t, "0051", result.ResponseCode)
}

func TestClient_SendSale_BillPayVerificationFails(t *testing.T) {
	var steps []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		steps = append(steps, req.Step)
		json.NewEncoder(w).Encode(transactionResponse{Authorised: false, ResponseCode: "0014"})
	}))
	defer srv.Close()

	product := entities.Product{ProductID: "P3", OperatorID: "OP2", Type: entities.ProductTypeBillPayPost}
	client := NewClient(srv.URL, "merchant-sim/test")

	result, err := client.SendSale(context.Background(), testConfig, testCred, product, 75, 3)
	require.NoError(t, err)
	assert.False(t, result.Authorised)
	assert.Equal(t, []string{StepVerification}, steps, "payment step never sent after a failed verification")
}

func TestClient_SendSale_BillPayBothSteps(t *testing.T) {
	var steps []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		steps = append(steps, req.Step)
		json.NewEncoder(w).Encode(transactionResponse{Authorised: true, ResponseCode: ResponseCodeApproved})
	}))
	defer srv.Close()

	product := entities.Product{ProductID: "P3", OperatorID: "OP2", Type: entities.ProductTypeBillPayPre}
	client := NewClient(srv.URL, "merchant-sim/test")

	result, err := client.SendSale(context.Background(), testConfig, testCred, product, 75, 3)
	require.NoError(t, err)
	assert.True(t, result.Authorised)
	assert.Equal(t, []string{StepVerification, StepPayment}, steps)
}

func TestClient_SendSale_RetriesOnTimeout(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	product := entities.Product{ProductID: "P1", OperatorID: "OP1", Type: entities.ProductTypeTopUp}
	client := NewClient(srv.URL, "merchant-sim/test")
	client.client.Timeout = 20 * time.Millisecond

	_, err := client.SendSale(context.Background(), testConfig, testCred, product, 50, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrGatewayTimeout)
	assert.Equal(t, int64(saleRetryAttempts), attempts.Load())
}

func TestClient_SendSale_NoRetryOnRejection(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	product := entities.Product{ProductID: "P1", OperatorID: "OP1", Type: entities.ProductTypeTopUp}
	client := NewClient(srv.URL, "merchant-sim/test")

	_, err := client.SendSale(context.Background(), testConfig, testCred, product, 50, 3)
	require.Error(t, err)
	assert.Equal(t, int64(1), attempts.Load(), "non-timeout failures surface immediately")
}

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "merchant-sim/test")

	_, err := client.SendLogon(context.Background(), testConfig, testCred, 1)
	assert.ErrorIs(t, err, domainerrors.ErrAuthFailed)

	_, err = client.GetBalance(context.Background(), testConfig, testCred)
	assert.ErrorIs(t, err, domainerrors.ErrAuthFailed)
}

func TestClient_SendDeposit(t *testing.T) {
	var gotReq transactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(transactionResponse{Authorised: true, ResponseCode: ResponseCodeApproved})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "merchant-sim/test")
	result, err := client.SendDeposit(context.Background(), testConfig, testCred, 500)
	require.NoError(t, err)

	assert.True(t, result.Authorised)
	assert.Equal(t, 500.0, gotReq.Amount)
}

func TestClient_SendReconciliation(t *testing.T) {
	var gotReq reconciliationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(transactionResponse{Authorised: true, ResponseCode: ResponseCodeApproved})
	}))
	defer srv.Close()

	totals := []entities.OperatorTotal{
		{MerchantID: "M1", OperatorID: "OP1", ContractID: "C1", Value: 100, Count: 2},
		{MerchantID: "M1", OperatorID: "OP2", ContractID: "C1", Value: 25, Count: 1},
	}

	client := NewClient(srv.URL, "merchant-sim/test")
	result, err := client.SendReconciliation(context.Background(), testConfig, testCred, totals)
	require.NoError(t, err)

	assert.True(t, result.Authorised)
	assert.Equal(t, 3, gotReq.TotalCount)
	assert.Equal(t, 125.0, gotReq.TotalValue)
	assert.Len(t, gotReq.Operators, 2)
}

func TestClient_GetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/merchants/M1/balance", r.URL.Path)
		json.NewEncoder(w).Encode(balanceResponse{Balance: 432.10})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "merchant-sim/test")
	balance, err := client.GetBalance(context.Background(), testConfig, testCred)
	require.NoError(t, err)
	assert.Equal(t, 432.10, balance)
}

func TestClient_GetProductCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/merchants/M1/catalog", r.URL.Path)
		assert.Equal(t, "C1,C2", r.URL.Query().Get("contracts"))
		json.NewEncoder(w).Encode(catalogResponse{Contracts: []entities.ContractCatalog{
			{ContractID: "C1", OperatorID: "OP1", Products: []entities.Product{{ProductID: "P1", Type: entities.ProductTypeTopUp}}},
			{ContractID: "C3", OperatorID: "OP3", Products: []entities.Product{{ProductID: "P9", Type: entities.ProductTypeVoucher}}},
		}})
	}))
	defer srv.Close()

	cfg := testConfig
	cfg.ContractIDs = []string{"C1", "C2"}

	client := NewClient(srv.URL, "merchant-sim/test")
	products, err := client.GetProductCatalog(context.Background(), cfg, testCred)
	require.NoError(t, err)

	require.Len(t, products, 1, "ineligible contracts filtered out")
	assert.Equal(t, "P1", products[0].ProductID)
	assert.Equal(t, "OP1", products[0].OperatorID)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(context.DeadlineExceeded))
	assert.False(t, isTimeout(context.Canceled))
	assert.False(t, isTimeout(nil))
}
