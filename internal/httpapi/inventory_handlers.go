package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/service"
)

func (a *API) handleStockEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.StockEntryRequest
	if !a.bind(w, r, &req) {
		return
	}

	resp, err := a.service.AddStock(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	page, err := a.service.ListInventory(r.Context(), service.ListParams{
		ShopID: query.Get("shop_id"),
		Tab:    query.Get("tab"),
		Query:  query.Get("q"),
		Cursor: query.Get("cursor"),
		Limit:  parsePositiveLimit(query.Get("limit"), service.DefaultPageSize, service.MaxPageSize),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	rows, err := a.service.Summary(r.Context(), r.URL.Query().Get("shop_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": rows})
}

// handleInventoryActions serves PATCH and DELETE on /inventory/{id} and POST
// on /inventory/{id}/adjust and /inventory/{id}/restock. Line ids are
// composite keys and may carry any batch number text.
func (a *API) handleInventoryActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r, "/api/v1/inventory/")
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("inventory id required"))
		return
	}

	switch {
	case strings.HasSuffix(tail, "/adjust"):
		a.handleAdjust(w, r, strings.Trim(strings.TrimSuffix(tail, "/adjust"), "/"))
		return
	case strings.HasSuffix(tail, "/restock"):
		a.handleRestock(w, r, strings.Trim(strings.TrimSuffix(tail, "/restock"), "/"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.LineUpdateRequest
		if !a.bind(w, r, &req) {
			return
		}
		line, err := a.service.UpdateLine(r.Context(), tail, req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"line": line})
	case http.MethodDelete:
		if err := a.service.DeleteLine(r.Context(), tail); err != nil {
			a.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAdjust(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("inventory id required"))
		return
	}

	var req domain.AdjustQtyRequest
	if !a.bind(w, r, &req) {
		return
	}
	line, err := a.service.AdjustLine(r.Context(), id, req.By)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"line": line})
}

func (a *API) handleRestock(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("inventory id required"))
		return
	}

	var req domain.RestockRequest
	if !a.bind(w, r, &req) {
		return
	}
	line, err := a.service.RestockLine(r.Context(), id, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"line": line})
}
