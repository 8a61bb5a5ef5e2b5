package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sebuszqo/ExpenseTracker/internal/auth"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
	"go.uber.org/zap"
)

type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, transaction *domain.Transaction) error
	GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, patch domain.TransactionPatch) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	GetTransactionSummary(ctx context.Context, userID string, startDate, endDate time.Time) (map[int]application.TransactionSummary, error)
	GetTransactionBreakdown(ctx context.Context, userID string) (*application.Breakdown, error)
}

type TransactionHandler struct {
	service      TransactionServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string)
	log          *zap.Logger
}

func NewTransactionHandler(
	service TransactionServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string),
	log *zap.Logger,
) *TransactionHandler {
	if service == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
		log:          log,
	}
}

type createTransactionRequest struct {
	Amount        float64     `json:"amount"`
	Description   *string     `json:"description"`
	Date          domain.Date `json:"date"`
	Time          *string     `json:"time"`
	PaymentMethod string      `json:"payment_method"`
	CategoryID    int64       `json:"category_id"`
	Type          string      `json:"type"`
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction := domain.Transaction{
		UserID:        userID,
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		Description:   req.Description,
		Date:          req.Date,
		Time:          req.Time,
		PaymentMethod: req.PaymentMethod,
		Type:          req.Type,
	}
	if err := h.service.CreateTransaction(r.Context(), &transaction); err != nil {
		h.handleError(w, err, "Error adding transaction")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"transaction": transaction,
	})
}

func (h *TransactionHandler) GetUserTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	transactions, err := h.service.GetUserTransactions(r.Context(), userID)
	if err != nil {
		h.handleError(w, err, "Error fetching transactions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"transactions": transactions,
	})
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var patch domain.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction, err := h.service.UpdateTransaction(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.handleError(w, err, "Error updating transaction")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"transaction": transaction,
	})
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.handleError(w, err, "Error deleting transaction")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *TransactionHandler) GetTransactionSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	startDate, endDate, msg := parseDateRange(r)
	if msg != "" {
		h.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if endDate.Before(startDate) {
		h.respondError(w, http.StatusBadRequest, "End date must not be before start date")
		return
	}

	summary, err := h.service.GetTransactionSummary(r.Context(), userID, startDate, endDate)
	if err != nil {
		h.handleError(w, err, "Error retrieving transaction summary")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    summary,
	})
}

func (h *TransactionHandler) GetTransactionBreakdown(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	breakdown, err := h.service.GetTransactionBreakdown(r.Context(), userID)
	if err != nil {
		h.handleError(w, err, "Error retrieving transaction breakdown")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    breakdown,
	})
}

func (h *TransactionHandler) handleError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case financeErrors.IsValidationError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case financeErrors.IsNotFound(err):
		h.respondError(w, http.StatusNotFound, "Transaction not found")
	default:
		h.log.Error(logMsg, zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parseDateRange reads start_date and end_date, defaulting to the current
// year so far. A non-empty message means the request was malformed.
func parseDateRange(r *http.Request) (time.Time, time.Time, string) {
	startDateStr := r.URL.Query().Get("start_date")
	endDateStr := r.URL.Query().Get("end_date")

	now := time.Now().UTC()
	startDate := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := now
	var err error

	if startDateStr != "" {
		startDate, err = time.Parse(domain.DateLayout, startDateStr)
		if err != nil {
			return time.Time{}, time.Time{}, "Invalid start date format"
		}
	}
	if endDateStr != "" {
		endDate, err = time.Parse(domain.DateLayout, endDateStr)
		if err != nil {
			return time.Time{}, time.Time{}, "Invalid end date format"
		}
	}
	return startDate, endDate, ""
}
