/*
handlers.go - HTTP API handlers for the ledger service

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                       List all accounts
    POST   /api/accounts                       Create account
    GET    /api/accounts/{code}                Get account details
    GET    /api/accounts/{code}/balance        Get running balance
    GET    /api/accounts/{code}/entries        Entry history
    GET    /api/accounts/{code}/awbs/{awb}/entries  AWB chain
    GET    /api/accounts/{code}/awbs/{awb}/tail     AWB chain tail

  Transactions:
    POST   /api/sales                          Bill a shipment
    POST   /api/sales/amend                    Correct a billed shipment
    POST   /api/payments                       Capture a payment receipt
    POST   /api/temp-entries                   Fund a temp account
    POST   /api/adjustments                    Manual debit/credit

  Notes:
    POST   /api/notes                          Apply a credit/debit note
    DELETE /api/notes/{sourceRef}              Reverse a note
    GET    /api/entries?source_ref=...         Entries by source document

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown sub-type, wrong account mode
  - 404: Account not found
  - 409: Duplicate note, receipt collision, stale balance, code taken
  - 422: Charge exceeds the credit limit under the strict guard
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/errors.go: The taxonomy behind the status mapping
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cargolink/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine

	// Resetter enables the demo scenario endpoints when non-nil.
	Resetter Resetter
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *ledger.Engine) *Handler {
	return &Handler{Engine: engine}
}

// WithResetter enables the demo scenario endpoints.
func (h *Handler) WithResetter(r Resetter) *Handler {
	h.Resetter = r
	return h
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
// GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Engine.ListAccounts(r.Context())
	if err != nil {
		writeLedgerError(w, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates a new account.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required", nil)
		return
	}

	limit := decimal.Zero
	if req.CreditLimit != "" {
		var err error
		if limit, err = decimal.NewFromString(req.CreditLimit); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid credit_limit", err)
			return
		}
	}

	acc, err := h.Engine.CreateAccount(r.Context(), ledger.Account{
		Code:         ledger.AccountCode(req.Code),
		Name:         req.Name,
		Mode:         ledger.AccountMode(req.Mode),
		CreditLimit:  limit,
		GuardDefault: ledger.GuardPolicy(req.GuardDefault),
	})
	if err != nil {
		writeLedgerError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(acc))
}

// GetAccount returns account details.
// GET /api/accounts/{code}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	code := ledger.AccountCode(chi.URLParam(r, "code"))

	acc, err := h.Engine.GetAccount(r.Context(), code)
	if err != nil {
		writeLedgerError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acc))
}

// GetBalance returns the account's running balance.
// GET /api/accounts/{code}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	code := ledger.AccountCode(chi.URLParam(r, "code"))

	balance, err := h.Engine.GetAccountBalance(r.Context(), code)
	if err != nil {
		writeLedgerError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		AccountCode: string(code),
		Balance:     balance.String(),
	})
}

// GetEntries returns the account's entry history.
// GET /api/accounts/{code}/entries
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	code := ledger.AccountCode(chi.URLParam(r, "code"))

	entries, err := h.Engine.Entries(r.Context(), code)
	if err != nil {
		writeLedgerError(w, "Failed to get entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// GetAwbEntries returns the entry chain for one waybill.
// GET /api/accounts/{code}/awbs/{awb}/entries
func (h *Handler) GetAwbEntries(w http.ResponseWriter, r *http.Request) {
	code := ledger.AccountCode(chi.URLParam(r, "code"))
	awb := ledger.AWBNo(chi.URLParam(r, "awb"))

	entries, err := h.Engine.EntriesForAWB(r.Context(), code, awb)
	if err != nil {
		writeLedgerError(w, "Failed to get AWB entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// GetAwbTail returns the audit-chain tail for one waybill.
// GET /api/accounts/{code}/awbs/{awb}/tail
func (h *Handler) GetAwbTail(w http.ResponseWriter, r *http.Request) {
	code := ledger.AccountCode(chi.URLParam(r, "code"))
	awb := ledger.AWBNo(chi.URLParam(r, "awb"))

	tail, err := h.Engine.GetAwbChainTail(r.Context(), code, awb)
	if err != nil {
		writeLedgerError(w, "Failed to get AWB tail", err)
		return
	}
	writeJSON(w, http.StatusOK, AwbTailDTO{
		AccountCode: string(code),
		AWBNo:       string(awb),
		Tail:        tail.String(),
	})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// RecordSale bills a shipment charge.
// POST /api/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	entry, err := h.Engine.RecordSale(r.Context(), ledger.SaleInput{
		AccountCode: ledger.AccountCode(req.AccountCode),
		AWBNo:       ledger.AWBNo(req.AWBNo),
		Amount:      amount,
		Remark:      req.Remark,
		SourceRef:   req.SourceRef,
		Guard:       ledger.GuardPolicy(req.Guard),
	})
	if err != nil {
		writeLedgerError(w, "Failed to record sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// AmendSale corrects a billed shipment charge.
// POST /api/sales/amend
func (h *Handler) AmendSale(w http.ResponseWriter, r *http.Request) {
	var req AmendSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	oldTotal, err := decimal.NewFromString(req.OldTotal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid old_total", err)
		return
	}
	newTotal, err := decimal.NewFromString(req.NewTotal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_total", err)
		return
	}

	entry, err := h.Engine.AmendSale(r.Context(), ledger.AmendSaleInput{
		AccountCode: ledger.AccountCode(req.AccountCode),
		AWBNo:       ledger.AWBNo(req.AWBNo),
		OldTotal:    oldTotal,
		NewTotal:    newTotal,
		Remark:      req.Remark,
		SourceRef:   req.SourceRef,
		Guard:       ledger.GuardPolicy(req.Guard),
	})
	if err != nil {
		writeLedgerError(w, "Failed to amend sale", err)
		return
	}
	if entry == nil {
		// Totals were equal; nothing was written.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// RecordPayment captures a payment receipt.
// POST /api/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	req, in, ok := h.decodeReceipt(w, r)
	if !ok {
		return
	}

	entry, err := h.Engine.RecordPayment(r.Context(), ledger.PaymentInput{
		AccountCode:  ledger.AccountCode(req.AccountCode),
		Amount:       in.amount,
		SubType:      ledger.ReceiptSubType(req.SubType),
		Remark:       req.Remark,
		DebitAmount:  in.debit,
		CreditAmount: in.credit,
	})
	if err != nil {
		writeLedgerError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// RecordTempEntry funds a temp account.
// POST /api/temp-entries
func (h *Handler) RecordTempEntry(w http.ResponseWriter, r *http.Request) {
	req, in, ok := h.decodeReceipt(w, r)
	if !ok {
		return
	}

	entry, err := h.Engine.RecordTempEntry(r.Context(), ledger.TempEntryInput{
		AccountCode:  ledger.AccountCode(req.AccountCode),
		Amount:       in.amount,
		SubType:      ledger.ReceiptSubType(req.SubType),
		Remark:       req.Remark,
		DebitAmount:  in.debit,
		CreditAmount: in.credit,
	})
	if err != nil {
		writeLedgerError(w, "Failed to record temp entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

type receiptAmounts struct {
	amount decimal.Decimal
	debit  *decimal.Decimal
	credit *decimal.Decimal
}

func (h *Handler) decodeReceipt(w http.ResponseWriter, r *http.Request) (ReceiptRequest, receiptAmounts, bool) {
	var req ReceiptRequest
	var in receiptAmounts

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, in, false
	}

	if req.Amount != "" {
		var err error
		if in.amount, err = decimal.NewFromString(req.Amount); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return req, in, false
		}
	}

	var err error
	if in.debit, err = parseOptionalDecimal(req.DebitAmount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid debit_amount", err)
		return req, in, false
	}
	if in.credit, err = parseOptionalDecimal(req.CreditAmount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credit_amount", err)
		return req, in, false
	}
	return req, in, true
}

// RecordAdjustment applies a manual debit or credit.
// POST /api/adjustments
func (h *Handler) RecordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	debit, err := parseOptionalDecimal(req.DebitAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid debit_amount", err)
		return
	}
	credit, err := parseOptionalDecimal(req.CreditAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credit_amount", err)
		return
	}

	entry, err := h.Engine.RecordAdjustment(r.Context(), ledger.AdjustmentInput{
		AccountCode:  ledger.AccountCode(req.AccountCode),
		DebitAmount:  debit,
		CreditAmount: credit,
		Remark:       req.Remark,
		SourceRef:    req.SourceRef,
	})
	if err != nil {
		writeLedgerError(w, "Failed to record adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// =============================================================================
// NOTE HANDLERS
// =============================================================================

// ApplyNote applies a credit or debit note.
// POST /api/notes
func (h *Handler) ApplyNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lines := make([]ledger.NoteLine, len(req.Lines))
	for i, l := range req.Lines {
		amount, err := decimal.NewFromString(l.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid line amount", err)
			return
		}
		lines[i] = ledger.NoteLine{
			AWBNo:  ledger.AWBNo(l.AWBNo),
			Amount: amount,
		}
	}

	entries, err := h.Engine.ApplyNote(r.Context(), ledger.NoteInput{
		Kind:        ledger.NoteKind(req.Kind),
		AccountCode: ledger.AccountCode(req.AccountCode),
		Lines:       lines,
		SourceRef:   req.SourceRef,
		Remark:      req.Remark,
	})
	if err != nil {
		writeLedgerError(w, "Failed to apply note", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTOs(entries))
}

// ReverseNote deletes the fan-out entries of a reversed note.
// DELETE /api/notes/{sourceRef}
func (h *Handler) ReverseNote(w http.ResponseWriter, r *http.Request) {
	sourceRef := chi.URLParam(r, "sourceRef")

	deleted, err := h.Engine.ReverseNote(r.Context(), sourceRef)
	if err != nil {
		writeLedgerError(w, "Failed to reverse note", err)
		return
	}
	writeJSON(w, http.StatusOK, ReverseNoteResponse{
		SourceRef: sourceRef,
		Deleted:   deleted,
	})
}

// GetEntriesBySource returns entries referencing a source document.
// GET /api/entries?source_ref=...
func (h *Handler) GetEntriesBySource(w http.ResponseWriter, r *http.Request) {
	sourceRef := r.URL.Query().Get("source_ref")
	if sourceRef == "" {
		writeError(w, http.StatusBadRequest, "source_ref query parameter is required", nil)
		return
	}

	entries, err := h.Engine.EntriesForSource(r.Context(), sourceRef)
	if err != nil {
		writeLedgerError(w, "Failed to get entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// Healthz reports service liveness.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps the ledger error taxonomy to HTTP statuses.
func writeLedgerError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientCredit):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrDuplicateSourceRef),
		errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, ledger.ErrSequenceConflict),
		errors.Is(err, ledger.ErrStaleBalanceRead):
		status = http.StatusConflict
	case ledger.IsClientError(err):
		status = http.StatusBadRequest
	}
	writeError(w, status, message, err)
}
