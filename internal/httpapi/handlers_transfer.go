package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/problem"
	"github.com/vaultline/wallet-core/internal/transfer"
)

const stepUpTokenHeader = "X-Step-Up-Token"

type transferRequest struct {
	RecipientUserID string  `json:"recipientUserId,omitempty"`
	RecipientEmail  string  `json:"recipientEmail,omitempty"`
	AmountMinor     int64   `json:"amountMinor"`
	Currency        string  `json:"currency"`
	Note            *string `json:"note,omitempty"`
	ClientReference *string `json:"clientReference,omitempty"`
	StepUpToken     string  `json:"stepUpToken,omitempty"`
}

type transferResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Replayed    bool                `json:"replayed,omitempty"`
}

func (a *API) handleTransfer(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	senderUserID := UserIDFromContext(r.Context())

	result, err := a.transfer.Transfer(r.Context(), transfer.Request{
		SenderUserID:      senderUserID,
		RecipientUserID:   req.RecipientUserID,
		RecipientEmail:    req.RecipientEmail,
		AmountMinor:       req.AmountMinor,
		Currency:          req.Currency,
		Note:              req.Note,
		ClientReference:   req.ClientReference,
		StepUpHeaderToken: r.Header.Get(stepUpTokenHeader),
		StepUpBodyToken:   req.StepUpToken,
	})
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}

	problem.WriteData(w, http.StatusCreated, transferResponse{
		Transaction: toTransactionResponse(result.Transaction, result.Role, "", ""),
		Replayed:    result.Replayed,
	})
}

func (a *API) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	userID := UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		problem.WriteError(w, traceID, apperr.New(apperr.CodeValidationFailed, "missing transaction id"))
		return
	}
	result, err := a.transfer.GetForUser(r.Context(), userID, id)
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, toTransactionResponse(result.Transaction, result.Role, "", ""))
}
