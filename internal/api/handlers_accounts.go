package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type addFundsRequest struct {
	Amount int64  `json:"amount"`
	Ticket string `json:"ticket" validate:"required,uuid"`
}

type transferRequest struct {
	ReceiverAccountNumber string `json:"receiver_account_number" validate:"required,max=32"`
	Amount                int64  `json:"amount"`
	Ticket                string `json:"ticket" validate:"required,uuid"`
}

type addBeneficiaryRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	AccountNumber string `json:"account_number" validate:"required,max=32"`
	Ticket        string `json:"ticket" validate:"required,uuid"`
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.ownedAccountID(w, r, "get_account")
	if !ok {
		return
	}
	balance, err := h.money.Balance(r.Context(), accountID)
	if err != nil {
		h.fail(w, "get_account", err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *Handler) handleAddFunds(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.ownedAccountID(w, r, "add_funds")
	if !ok {
		return
	}
	var req addFundsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	entry, err := h.money.AddFunds(r.Context(), accountID, uuid.MustParse(req.Ticket), req.Amount)
	if err != nil {
		h.fail(w, "add_funds", err)
		return
	}
	balance, err := h.money.Balance(r.Context(), accountID)
	if err != nil {
		h.fail(w, "add_funds", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Money added successfully",
		"transaction": entry,
		"balance":     balance,
	})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.ownedAccountID(w, r, "transfer")
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	entry, err := h.money.Transfer(r.Context(), accountID, uuid.MustParse(req.Ticket), req.ReceiverAccountNumber, req.Amount)
	if err != nil {
		h.fail(w, "transfer", err)
		return
	}
	balance, err := h.money.Balance(r.Context(), accountID)
	if err != nil {
		h.fail(w, "transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Transfer successful",
		"transaction": entry,
		"balance":     balance,
	})
}

func (h *Handler) handleListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.ownedAccountID(w, r, "list_beneficiaries")
	if !ok {
		return
	}
	beneficiaries, err := h.money.Beneficiaries(r.Context(), accountID)
	if err != nil {
		h.fail(w, "list_beneficiaries", err)
		return
	}
	writeJSON(w, http.StatusOK, beneficiaries)
}

func (h *Handler) handleAddBeneficiary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.ownedAccountID(w, r, "add_beneficiary")
	if !ok {
		return
	}
	var req addBeneficiaryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	account, err := h.money.AddBeneficiary(r.Context(), accountID, uuid.MustParse(req.Ticket), req.Name, req.AccountNumber)
	if err != nil {
		h.fail(w, "add_beneficiary", err)
		return
	}
	writeJSON(w, http.StatusCreated, account.Beneficiaries)
}

func (h *Handler) handleRemoveBeneficiary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.ownedAccountID(w, r, "remove_beneficiary")
	if !ok {
		return
	}
	account, err := h.money.RemoveBeneficiary(r.Context(), accountID, chi.URLParam(r, "accountNumber"))
	if err != nil {
		h.fail(w, "remove_beneficiary", err)
		return
	}
	writeJSON(w, http.StatusOK, account.Beneficiaries)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.ownedAccountID(w, r, "list_transactions")
	if !ok {
		return
	}
	history, err := h.money.History(r.Context(), accountID)
	if err != nil {
		h.fail(w, "list_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
