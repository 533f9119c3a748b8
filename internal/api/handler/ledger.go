// internal/api/handler/ledger.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"payflow/internal/api/types"
	"payflow/internal/domain"
	"payflow/internal/service"
	"payflow/internal/util" // For custom errors
)

// DefaultTimeout bounds request handling in the router middleware.
const DefaultTimeout = 30 * time.Second

// LedgerHandler handles HTTP requests for the ledger core.
type LedgerHandler struct {
	service service.LedgerService
	logger  *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: svc,
		logger:  logger,
	}
}

// Helper function to send JSON responses.
func (h *LedgerHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses. Terminal errors surface a
// specific human-readable reason; anything unexpected stays generic so
// store internals never leak to the client.
func (h *LedgerHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = "Invalid amount or request"
	case util.IsError(err, util.ErrSelfTransfer):
		statusCode = http.StatusBadRequest
		message = "Cannot transfer to your own payment ID"
	case util.IsError(err, util.ErrRecipientNotFound):
		statusCode = http.StatusNotFound
		message = "Recipient payment ID not found"
	case util.IsError(err, util.ErrAccountNotFound), util.IsError(err, util.ErrTransferNotFound), util.IsError(err, util.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired // 402 Payment Required
		message = "Insufficient funds"
	case util.IsError(err, util.ErrConflict):
		statusCode = http.StatusConflict
		message = "Operation conflicted with another in progress, please retry"
	case util.IsError(err, util.ErrPaymentUnderReview):
		statusCode = http.StatusAccepted
		message = "Payment under review"
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// SessionRequest represents the request body for session start.
type SessionRequest struct {
	Identity    string `json:"identity"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// StartSession resolves or creates the account for an authenticated
// identity, then applies any interest due.
// POST /sessions
func (h *LedgerHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.Identity == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	account, created, err := h.service.ResolveOrCreateAccount(r.Context(), req.Identity, req.Email, req.DisplayName)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	// Interest accrual and the creation bonus are mutually exclusive:
	// a fresh account's accrual anchor is its creation time.
	if !created {
		account, err = h.service.ApplyInterestIfDue(r.Context(), account.ID)
		if err != nil {
			h.respondWithError(w, err)
			return
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondWithJSON(w, status, map[string]interface{}{
		"account": account,
		"created": created,
	})
}

// GetAccount returns one account record.
// GET /accounts/{accountID}
func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, account)
}

// GetStatement returns a paginated ledger for one account.
// GET /accounts/{accountID}/entries
func (h *LedgerHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0 // Default offset
	}

	entries, totalCount, err := h.service.GetStatement(r.Context(), accountID, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.LedgerEntry]{
		Data:       entries,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// GetSummary returns the advisory text summary for one account.
// GET /accounts/{accountID}/summary
func (h *LedgerHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	summary, err := h.service.AdvisorySummary(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// Lookup resolves a payment identifier to its public account fields.
// GET /lookup?payment_id=
func (h *LedgerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("payment_id")
	if paymentID == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	account, err := h.service.ResolvePaymentID(r.Context(), paymentID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	// Only routing information leaves the lookup; balances stay private.
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"payment_id":   account.PaymentID,
		"display_name": account.DisplayName,
	})
}

// TransferRequest represents the request body for transfer.
type TransferRequest struct {
	RequestID     string          `json:"request_id"`
	FromAccountID int64           `json:"from_account_id"`
	ToPaymentID   string          `json:"to_payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
}

// Transfer handles the money transfer request.
// POST /transfers
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	// Basic validation
	if req.RequestID == "" || req.FromAccountID == 0 || req.ToPaymentID == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.Transfer(r.Context(), req.RequestID, req.FromAccountID, req.ToPaymentID, req.Amount, req.Note)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	payload := map[string]interface{}{
		"transfer": result.Transfer,
		"replayed": result.Replayed,
	}
	if result.Sender != nil {
		payload["new_balance"] = result.Sender.Balance
	}
	h.respondWithJSON(w, http.StatusOK, payload)
}

// GetTransferStatus reports the recorded outcome of a transfer attempt.
// GET /transfers/{requestID}
func (h *LedgerHandler) GetTransferStatus(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if requestID == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	transfer, err := h.service.GetTransferStatus(r.Context(), requestID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, transfer)
}

// GetAdminStats returns system-wide totals.
// GET /admin/stats
func (h *LedgerHandler) GetAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, stats)
}
