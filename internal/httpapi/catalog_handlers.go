package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/service"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	me, err := a.service.Me(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (a *API) handleShops(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		shops, err := a.service.ListShops(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"shops": shops})
	case http.MethodPost:
		var req domain.ShopRequest
		if !a.bind(w, r, &req) {
			return
		}
		shop, err := a.service.CreateShop(r.Context(), req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"shop": shop})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleShopActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r, "/api/v1/shops/")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("shop id required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.ShopRequest
		if !a.bind(w, r, &req) {
			return
		}
		shop, err := a.service.UpdateShop(r.Context(), id, req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"shop": shop})
	case http.MethodDelete:
		if err := a.service.DeleteShop(r.Context(), id); err != nil {
			a.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

// catalogEndpoints binds the shared brand / cover type handlers to one
// collection.
type catalogEndpoints struct {
	plural string
	single string
	list   func(ctx context.Context) ([]domain.CatalogItem, error)
	create func(ctx context.Context, req domain.CatalogRequest) (domain.CatalogItem, bool, error)
	rename func(ctx context.Context, id string, req domain.CatalogRequest) (domain.CatalogItem, error)
	remove func(ctx context.Context, id string) error
}

func brandEndpoints(svc *service.Service) catalogEndpoints {
	return catalogEndpoints{
		plural: "brands",
		single: "brand",
		list:   svc.ListBrands,
		create: svc.CreateBrand,
		rename: svc.RenameBrand,
		remove: svc.DeleteBrand,
	}
}

func coverTypeEndpoints(svc *service.Service) catalogEndpoints {
	return catalogEndpoints{
		plural: "cover_types",
		single: "cover_type",
		list:   svc.ListCoverTypes,
		create: svc.CreateCoverType,
		rename: svc.RenameCoverType,
		remove: svc.DeleteCoverType,
	}
}

func (a *API) handleCatalog(ep catalogEndpoints) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			items, err := ep.list(r.Context())
			if err != nil {
				a.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{ep.plural: items})
		case http.MethodPost:
			var req domain.CatalogRequest
			if !a.bind(w, r, &req) {
				return
			}
			item, created, err := ep.create(r.Context(), req)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			status := http.StatusOK
			if created {
				status = http.StatusCreated
			}
			writeJSON(w, status, map[string]any{ep.single: item, "created": created})
		default:
			writeMethodNotAllowed(w)
		}
	}
}

func (a *API) handleCatalogActions(prefix string, ep catalogEndpoints) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathTail(r, prefix)
		if id == "" {
			writeError(w, http.StatusBadRequest, errors.New(ep.single+" id required"))
			return
		}

		switch r.Method {
		case http.MethodPatch:
			var req domain.CatalogRequest
			if !a.bind(w, r, &req) {
				return
			}
			item, err := ep.rename(r.Context(), id, req)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{ep.single: item})
		case http.MethodDelete:
			if err := ep.remove(r.Context(), id); err != nil {
				a.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeMethodNotAllowed(w)
		}
	}
}

func (a *API) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	models, err := a.service.ListModels(r.Context(), r.URL.Query().Get("brand_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (a *API) handleModelSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	query := r.URL.Query()
	models, err := a.service.SuggestModels(r.Context(), query.Get("brand_id"), query.Get("q"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (a *API) handleModelActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r, "/api/v1/models/")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("model id required"))
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.DeleteModel(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
