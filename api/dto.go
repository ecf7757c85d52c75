/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All monetary fields travel as JSON strings ("1250.00") and are parsed
  with shopspring/decimal. Floats are never accepted.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model behind them
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cargolink/ledger-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Mode           string `json:"mode"`
	CurrentBalance string `json:"current_balance"`
	CreditLimit    string `json:"credit_limit"`
	CreditHold     bool   `json:"credit_hold"`
	GuardDefault   string `json:"guard_default,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Mode         string `json:"mode"`
	CreditLimit  string `json:"credit_limit"`
	GuardDefault string `json:"guard_default"`
}

// EntryDTO represents a ledger entry in API responses.
type EntryDTO struct {
	ID             string `json:"id"`
	AccountCode    string `json:"account_code"`
	AWBNo          string `json:"awb_no,omitempty"`
	Kind           string `json:"kind"`
	Amount         string `json:"amount"`
	OpeningBalance string `json:"opening_balance"`
	ClosingBalance string `json:"closing_balance"`
	AccountLevel   bool   `json:"account_level"`
	Remark         string `json:"remark,omitempty"`
	SourceRef      string `json:"source_ref,omitempty"`
	ReceiptFamily  string `json:"receipt_family,omitempty"`
	ReceiptNo      int64  `json:"receipt_no,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// SaleRequest bills a shipment charge.
type SaleRequest struct {
	AccountCode string `json:"account_code"`
	AWBNo       string `json:"awb_no"`
	Amount      string `json:"amount"`
	Remark      string `json:"remark"`
	SourceRef   string `json:"source_ref"`
	Guard       string `json:"guard"`
}

// AmendSaleRequest corrects a billed shipment charge.
type AmendSaleRequest struct {
	AccountCode string `json:"account_code"`
	AWBNo       string `json:"awb_no"`
	OldTotal    string `json:"old_total"`
	NewTotal    string `json:"new_total"`
	Remark      string `json:"remark"`
	SourceRef   string `json:"source_ref"`
	Guard       string `json:"guard"`
}

// ReceiptRequest captures a payment or a temp-credit entry.
type ReceiptRequest struct {
	AccountCode  string  `json:"account_code"`
	Amount       string  `json:"amount"`
	SubType      string  `json:"sub_type"`
	Remark       string  `json:"remark"`
	DebitAmount  *string `json:"debit_amount,omitempty"`
	CreditAmount *string `json:"credit_amount,omitempty"`
}

// AdjustmentRequest applies a manual debit or credit.
type AdjustmentRequest struct {
	AccountCode  string  `json:"account_code"`
	DebitAmount  *string `json:"debit_amount,omitempty"`
	CreditAmount *string `json:"credit_amount,omitempty"`
	Remark       string  `json:"remark"`
	SourceRef    string  `json:"source_ref"`
}

// NoteLineRequest is one line item of a note.
type NoteLineRequest struct {
	AWBNo  string `json:"awb_no"`
	Amount string `json:"amount"`
}

// NoteRequest applies a credit or debit note.
type NoteRequest struct {
	Kind        string            `json:"kind"` // "credit" or "debit"
	AccountCode string            `json:"account_code"`
	SourceRef   string            `json:"source_ref"`
	Remark      string            `json:"remark"`
	Lines       []NoteLineRequest `json:"lines"`
}

// BalanceDTO is the balance summary for an account.
type BalanceDTO struct {
	AccountCode string `json:"account_code"`
	Balance     string `json:"balance"`
}

// AwbTailDTO is the audit-chain tail for one waybill.
type AwbTailDTO struct {
	AccountCode string `json:"account_code"`
	AWBNo       string `json:"awb_no"`
	Tail        string `json:"tail"`
}

// ReverseNoteResponse reports how many entries a reversal removed.
type ReverseNoteResponse struct {
	SourceRef string `json:"source_ref"`
	Deleted   int64  `json:"deleted"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(acc *ledger.Account) AccountDTO {
	return AccountDTO{
		Code:           string(acc.Code),
		Name:           acc.Name,
		Mode:           string(acc.Mode),
		CurrentBalance: acc.CurrentBalance.String(),
		CreditLimit:    acc.CreditLimit.String(),
		CreditHold:     acc.CreditHold,
		GuardDefault:   string(acc.GuardDefault),
		CreatedAt:      acc.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:             string(e.ID),
		AccountCode:    string(e.AccountCode),
		AWBNo:          string(e.AWBNo),
		Kind:           string(e.Kind),
		Amount:         e.Amount.String(),
		OpeningBalance: e.OpeningBalance.String(),
		ClosingBalance: e.ClosingBalance.String(),
		AccountLevel:   e.AccountLevel,
		Remark:         e.Remark,
		SourceRef:      e.SourceRef,
		ReceiptFamily:  string(e.ReceiptFamily),
		ReceiptNo:      e.ReceiptNo,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryDTOs(entries []ledger.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
