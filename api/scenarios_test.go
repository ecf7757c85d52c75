/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario loads cleanly and leaves the expected state:
	accounts created, balances consistent, note chains in place.
*/
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/ledger-engine/ledger"
	"github.com/cargolink/ledger-engine/ledger/store"
)

func newScenarioServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := store.NewTxMemory()
	handler := NewHandler(ledger.NewEngine(mem)).WithResetter(mem)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func loadScenario(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListScenarios(t *testing.T) {
	srv := newScenarioServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]ScenarioDTO](t, resp)
	assert.Len(t, list, 3)
}

func TestLoadScenario_ForwarderBasic(t *testing.T) {
	srv := newScenarioServer(t)
	loadScenario(t, srv, "forwarder-basic")

	// 12500 + 8200 - 700 (amendment) - 10000 (payment) = 10000
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/SKYWAY/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balance := decodeBody[BalanceDTO](t, resp)
	assert.Equal(t, "10000", balance.Balance)
}

func TestLoadScenario_NotesCorrections(t *testing.T) {
	srv := newScenarioServer(t)
	loadScenario(t, srv, "notes-corrections")

	// Notes never move the account balance.
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/OCEANIC/balance", nil)
	balance := decodeBody[BalanceDTO](t, resp)
	assert.Equal(t, "20000", balance.Balance)

	// The reversed credit note is gone; the debit note's opening still
	// reflects the note that was deleted after it.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/OCEANIC/awbs/125-55556666/entries", nil)
	entries := decodeBody[[]EntryDTO](t, resp)
	require.Len(t, entries, 2)
	assert.Equal(t, "sale", entries[0].Kind)
	assert.Equal(t, "debit_note", entries[1].Kind)
	assert.Equal(t, "16500", entries[1].OpeningBalance)
}

func TestLoadScenario_TempShipper(t *testing.T) {
	srv := newScenarioServer(t)
	loadScenario(t, srv, "temp-shipper")

	// 5000 deposit - 1500 write-back = 3500
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/WALKIN-7/balance", nil)
	balance := decodeBody[BalanceDTO](t, resp)
	assert.Equal(t, "3500", balance.Balance)
}

func TestLoadScenario_ResetsPreviousState(t *testing.T) {
	srv := newScenarioServer(t)
	loadScenario(t, srv, "forwarder-basic")
	loadScenario(t, srv, "temp-shipper")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/SKYWAY", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoadScenario_UnknownID(t *testing.T) {
	srv := newScenarioServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoadScenario_DisabledWithoutResetter(t *testing.T) {
	engine := ledger.NewEngine(store.NewTxMemory())
	srv := httptest.NewServer(NewRouter(NewHandler(engine)))
	t.Cleanup(srv.Close)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "temp-shipper"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
