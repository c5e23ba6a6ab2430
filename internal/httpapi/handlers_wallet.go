package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/problem"
	"github.com/vaultline/wallet-core/internal/wallet"
)

const defaultHistoryLimit = 20
const maxHistoryLimit = 100

type walletResponse struct {
	ID                      string `json:"id"`
	Currency                string `json:"currency"`
	Status                  string `json:"status"`
	AvailableBalanceMinor   int64  `json:"availableBalanceMinor"`
	AvailableBalanceDisplay string `json:"availableBalanceDisplay"`
	Limits                  struct {
		MinAmountMinor         int64  `json:"minAmountMinor"`
		PerTransactionMaxMinor int64  `json:"perTransactionMaxMinor"`
		DailyMaxMinor          int64  `json:"dailyMaxMinor"`
		DailyUsedMinor         int64  `json:"dailyUsedMinor"`
		DailyUsedDisplay       string `json:"dailyUsedDisplay"`
	} `json:"limits"`
}

func toWalletResponse(v *wallet.View) walletResponse {
	resp := walletResponse{
		ID:                      v.Wallet.ID,
		Currency:                v.Wallet.Currency,
		Status:                  string(v.Wallet.Status),
		AvailableBalanceMinor:   v.Wallet.AvailableBalanceMinor,
		AvailableBalanceDisplay: wallet.FormatAmount(v.Wallet.AvailableBalanceMinor),
	}
	resp.Limits.MinAmountMinor = v.Limits.MinAmountMinor
	resp.Limits.PerTransactionMaxMinor = v.Limits.PerTransactionMaxMinor
	resp.Limits.DailyMaxMinor = v.Limits.DailyMaxMinor
	resp.Limits.DailyUsedMinor = v.Limits.DailyUsedMinor
	resp.Limits.DailyUsedDisplay = wallet.FormatAmount(v.Limits.DailyUsedMinor)
	return resp
}

func (a *API) handleWalletView(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	userID := UserIDFromContext(r.Context())
	view, err := a.wallet.View(r.Context(), userID)
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, toWalletResponse(view))
}

type transactionResponse struct {
	ID                     string  `json:"id"`
	Type                   string  `json:"type"`
	Status                 string  `json:"status"`
	Role                   string  `json:"role,omitempty"`
	AmountMinor            int64   `json:"amountMinor"`
	AmountDisplay          string  `json:"amountDisplay"`
	Currency               string  `json:"currency"`
	Note                   *string `json:"note,omitempty"`
	ClientReference        *string `json:"clientReference,omitempty"`
	StepUpUsed             bool    `json:"stepUpUsed"`
	CreatedAt              string  `json:"createdAt"`
	CounterpartyIdentifier string  `json:"counterpartyIdentifier,omitempty"`
	CounterpartyName       string  `json:"counterpartyName,omitempty"`
}

func toTransactionResponse(t *models.WalletTransaction, role, counterpartyIdentifier, counterpartyName string) transactionResponse {
	return transactionResponse{
		ID:                     t.ID,
		Type:                   string(t.Type),
		Status:                 string(t.Status),
		Role:                   role,
		AmountMinor:            t.AmountMinor,
		AmountDisplay:          wallet.FormatAmount(t.AmountMinor),
		Currency:               t.Currency,
		Note:                   t.Note,
		ClientReference:        t.ClientReference,
		StepUpUsed:             t.StepUpUsed,
		CreatedAt:              t.CreatedAt.UTC().Format(time.RFC3339Nano),
		CounterpartyIdentifier: counterpartyIdentifier,
		CounterpartyName:       counterpartyName,
	}
}

func (a *API) handleWalletHistory(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	userID := UserIDFromContext(r.Context())
	limit := parseLimit(r, defaultHistoryLimit, maxHistoryLimit)
	cursorCreatedAt, cursorID, _ := decodeCursor(r.URL.Query().Get("cursor"))

	entries, err := a.wallet.History(r.Context(), userID, cursorCreatedAt, cursorID, limit)
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}

	items := make([]transactionResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toTransactionResponse(&e.Transaction, e.Role, e.CounterpartyIdentifier, e.CounterpartyName))
	}

	var nextCursor string
	if len(entries) == limit {
		last := entries[len(entries)-1]
		nextCursor = encodeCursor(last.Transaction.CreatedAt, last.Transaction.ID)
	}
	problem.WriteList(w, http.StatusOK, items, nextCursor, limit)
}

type resolveRecipientRequest struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
}

type recipientResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (a *API) handleResolveRecipient(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req resolveRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	preview, err := a.wallet.ResolveRecipient(r.Context(), req.UserID, req.Email)
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, recipientResponse{UserID: preview.UserID, Email: preview.Email, Name: preview.Name})
}
