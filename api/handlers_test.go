/*
handlers_test.go - Unit tests for API handlers

Tests run over the in-memory store through the full router, exercising the
JSON contract and the error-to-status mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/ledger-engine/ledger"
	"github.com/cargolink/ledger-engine/ledger/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	engine := ledger.NewEngine(store.NewTxMemory())
	srv := httptest.NewServer(NewRouter(NewHandler(engine)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createAccount(t *testing.T, srv *httptest.Server, req CreateAccountRequest) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", req)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestCreateAndGetAccount(t *testing.T) {
	srv := newTestServer(t)

	createAccount(t, srv, CreateAccountRequest{
		Code: "ACC-1", Name: "Skyway Freight", Mode: "normal", CreditLimit: "5000",
	})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/ACC-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	acc := decodeBody[AccountDTO](t, resp)
	assert.Equal(t, "ACC-1", acc.Code)
	assert.Equal(t, "normal", acc.Mode)
	assert.Equal(t, "0", acc.CurrentBalance)
	assert.Equal(t, "5000", acc.CreditLimit)
}

func TestGetAccount_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/GHOST", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAccount_DuplicateConflict(t *testing.T) {
	srv := newTestServer(t)

	createAccount(t, srv, CreateAccountRequest{Code: "ACC-1", Name: "A", Mode: "normal"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts",
		CreateAccountRequest{Code: "ACC-1", Name: "B", Mode: "normal"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSaleAndPaymentFlow(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, CreateAccountRequest{Code: "ACC-1", Name: "A", Mode: "normal"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sales", SaleRequest{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: "1200.50", SourceRef: "INV-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sale := decodeBody[EntryDTO](t, resp)
	assert.Equal(t, "sale", sale.Kind)
	assert.Equal(t, "0", sale.OpeningBalance)
	assert.Equal(t, "1200.5", sale.ClosingBalance)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/payments", ReceiptRequest{
		AccountCode: "ACC-1", Amount: "200.5", SubType: "Return",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	payment := decodeBody[EntryDTO](t, resp)
	assert.Equal(t, int64(1000), payment.ReceiptNo)
	assert.Equal(t, "1000", payment.ClosingBalance)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/ACC-1/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balance := decodeBody[BalanceDTO](t, resp)
	assert.Equal(t, "1000", balance.Balance)
}

func TestPayment_UnknownSubTypeIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, CreateAccountRequest{Code: "ACC-1", Name: "A", Mode: "normal"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/payments", ReceiptRequest{
		AccountCode: "ACC-1", Amount: "100", SubType: "Goodwill",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPayment_WrongModeIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, CreateAccountRequest{Code: "TMP-1", Name: "T", Mode: "temp"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/payments", ReceiptRequest{
		AccountCode: "TMP-1", Amount: "100", SubType: "Return",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSale_OverLimitStrictGuardIsUnprocessable(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, CreateAccountRequest{
		Code: "ACC-1", Name: "A", Mode: "normal", CreditLimit: "100",
	})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sales", SaleRequest{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: "500",
		SourceRef: "INV-1", Guard: "strict",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAmendSale_NoChangeIsNoContent(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, CreateAccountRequest{Code: "ACC-1", Name: "A", Mode: "normal"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sales/amend", AmendSaleRequest{
		AccountCode: "ACC-1", AWBNo: "AWB-1", OldTotal: "100", NewTotal: "100",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// NOTES
// =============================================================================

func TestNoteLifecycle(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, CreateAccountRequest{Code: "ACC-1", Name: "A", Mode: "normal"})

	note := NoteRequest{
		Kind: "credit", AccountCode: "ACC-1", SourceRef: "CN-1",
		Lines: []NoteLineRequest{
			{AWBNo: "AWB-1", Amount: "200"},
			{AWBNo: "AWB-2", Amount: "50"},
		},
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/notes", note)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entries := decodeBody[[]EntryDTO](t, resp)
	require.Len(t, entries, 2)
	assert.Equal(t, "credit_note", entries[0].Kind)
	assert.False(t, entries[0].AccountLevel)

	// Replay is a conflict.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/notes", note)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Account balance is untouched by notes.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/ACC-1/balance", nil)
	balance := decodeBody[BalanceDTO](t, resp)
	assert.Equal(t, "0", balance.Balance)

	// AWB tail reflects the note chain.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/ACC-1/awbs/AWB-1/tail", nil)
	tail := decodeBody[AwbTailDTO](t, resp)
	assert.Equal(t, "-200", tail.Tail)

	// Reversal removes the fan-out.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/notes/CN-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reversed := decodeBody[ReverseNoteResponse](t, resp)
	assert.Equal(t, int64(2), reversed.Deleted)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/entries?source_ref=CN-1", nil)
	remaining := decodeBody[[]EntryDTO](t, resp)
	assert.Empty(t, remaining)
}

// =============================================================================
// MISC
// =============================================================================

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
