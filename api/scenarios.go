/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	freight-forwarding data for testing and demos. Each scenario creates
	accounts and runs transactions that demonstrate specific features.

AVAILABLE SCENARIOS:

	forwarder-basic:   Sales, a bill amendment, and payment receipts
	notes-corrections: Credit/debit notes fanning out across waybills
	temp-shipper:      Pre-funded temp account with temp-credit receipts

HOW SCENARIOS WORK:
 1. Reset the database (clear all data)
 2. Create accounts
 3. Run engine operations in a realistic order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "forwarder-basic"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
	Loading fails with 404 when the handler has no Resetter wired.

SEE ALSO:
  - server.go: Scenario route registration
  - ledger/engine.go: The operations scenarios drive
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cargolink/ledger-engine/ledger"
)

// Resetter clears all stored data. Implemented by both stores.
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "forwarder-basic",
		Name:        "Forwarder Basics",
		Description: "Shipment billing, a bill correction, and payment receipts",
	},
	{
		ID:          "notes-corrections",
		Name:        "Notes & Corrections",
		Description: "Credit/debit notes fanning out per waybill, plus a reversal",
	},
	{
		ID:          "temp-shipper",
		Name:        "Temp Shipper",
		Description: "Pre-funded temp account consuming its temp-credit balance",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Resetter == nil {
		writeError(w, http.StatusNotFound, "Scenarios are not enabled", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "forwarder-basic":
		err = h.loadForwarderBasicScenario(ctx)
	case "notes-corrections":
		err = h.loadNotesCorrectionsScenario(ctx)
	case "temp-shipper":
		err = h.loadTempShipperScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	for _, s := range scenarios {
		if s.ID == req.ScenarioID {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadForwarderBasicScenario(ctx context.Context) error {
	if _, err := h.Engine.CreateAccount(ctx, ledger.Account{
		Code:        "SKYWAY",
		Name:        "Skyway Freight Pvt Ltd",
		Mode:        ledger.ModeNormal,
		CreditLimit: decimal.NewFromInt(50000),
	}); err != nil {
		return err
	}

	// Two shipments billed.
	if _, err := h.Engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "SKYWAY", AWBNo: "098-11112222",
		Amount: dec("12500"), SourceRef: "INV-2001", Remark: "DEL-BOM air freight",
	}); err != nil {
		return err
	}
	if _, err := h.Engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "SKYWAY", AWBNo: "098-33334444",
		Amount: dec("8200"), SourceRef: "INV-2002", Remark: "DEL-MAA air freight",
	}); err != nil {
		return err
	}

	// First bill corrected downward after a weight dispute.
	if _, err := h.Engine.AmendSale(ctx, ledger.AmendSaleInput{
		AccountCode: "SKYWAY", AWBNo: "098-11112222",
		OldTotal: dec("12500"), NewTotal: dec("11800"),
		SourceRef: "INV-2001", Remark: "chargeable weight revised",
	}); err != nil {
		return err
	}

	// Partial settlement.
	_, err := h.Engine.RecordPayment(ctx, ledger.PaymentInput{
		AccountCode: "SKYWAY", Amount: dec("10000"),
		SubType: ledger.SubTypeGeneralEntry, Remark: "NEFT settlement",
	})
	return err
}

func (h *Handler) loadNotesCorrectionsScenario(ctx context.Context) error {
	if _, err := h.Engine.CreateAccount(ctx, ledger.Account{
		Code: "OCEANIC", Name: "Oceanic Cargo Movers", Mode: ledger.ModeNormal,
	}); err != nil {
		return err
	}

	if _, err := h.Engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "OCEANIC", AWBNo: "125-55556666",
		Amount: dec("20000"), SourceRef: "INV-3001",
	}); err != nil {
		return err
	}

	// Credit note across two waybills.
	if _, err := h.Engine.ApplyNote(ctx, ledger.NoteInput{
		Kind: ledger.NoteCredit, AccountCode: "OCEANIC", SourceRef: "CN-101",
		Remark: "damaged consignment settlement",
		Lines: []ledger.NoteLine{
			{AWBNo: "125-55556666", Amount: dec("3500")},
			{AWBNo: "125-77778888", Amount: dec("1200")},
		},
	}); err != nil {
		return err
	}

	// A later debit note on the first waybill.
	if _, err := h.Engine.ApplyNote(ctx, ledger.NoteInput{
		Kind: ledger.NoteDebit, AccountCode: "OCEANIC", SourceRef: "DN-55",
		Remark: "detention charges",
		Lines: []ledger.NoteLine{
			{AWBNo: "125-55556666", Amount: dec("800")},
		},
	}); err != nil {
		return err
	}

	// The credit note is withdrawn; the debit note's chain values stand.
	_, err := h.Engine.ReverseNote(ctx, "CN-101")
	return err
}

func (h *Handler) loadTempShipperScenario(ctx context.Context) error {
	if _, err := h.Engine.CreateAccount(ctx, ledger.Account{
		Code: "WALKIN-7", Name: "Walk-in Shipper 7", Mode: ledger.ModeTemp,
	}); err != nil {
		return err
	}

	// Pre-funding deposits.
	if _, err := h.Engine.RecordTempEntry(ctx, ledger.TempEntryInput{
		AccountCode: "WALKIN-7", Amount: dec("5000"),
		SubType: ledger.SubTypeGeneralEntry, Remark: "cash deposit",
	}); err != nil {
		return err
	}
	_, err := h.Engine.RecordTempEntry(ctx, ledger.TempEntryInput{
		AccountCode: "WALKIN-7", Amount: dec("1500"),
		SubType: ledger.SubTypeBadDebts, Remark: "written back",
	})
	return err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
