package api

import (
	"net/http"
)

func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		h.fail(w, "admin_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.admin.ListUsers(r.Context(), r.URL.Query().Get("search"), queryInt(r, "page"))
	if err != nil {
		h.fail(w, "admin_list_users", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleAdminListTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.ListAllTransactions(r.Context())
	if err != nil {
		h.fail(w, "admin_list_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleAdminCharts(w http.ResponseWriter, r *http.Request) {
	points, err := h.admin.ChartSeries(r.Context(), queryInt(r, "days"))
	if err != nil {
		h.fail(w, "admin_charts", err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) handleAdminSuspicious(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.Suspicious(r.Context(), queryInt64(r, "threshold"))
	if err != nil {
		h.fail(w, "admin_suspicious", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleAdminFreeze(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.admin.Freeze(r.Context(), id)
	if err != nil {
		h.fail(w, "admin_freeze", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Account frozen", "account": account})
}

func (h *Handler) handleAdminUnfreeze(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.admin.Unfreeze(r.Context(), id)
	if err != nil {
		h.fail(w, "admin_unfreeze", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Account unfrozen", "account": account})
}

func (h *Handler) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.admin.Delete(r.Context(), id); err != nil {
		h.fail(w, "admin_delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
