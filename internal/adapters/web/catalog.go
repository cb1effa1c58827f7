package web

import (
	"net/http"

	"procurement-flow/internal/app"
	"procurement-flow/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ── Suppliers & materials ────────────────────────────────────────────────────

func (h *Handler) apiListSuppliers(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sup, err := h.svc.CreateSupplier(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, sup)
}

func (h *Handler) apiListMaterials(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListMaterials(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.svc.GetMaterial(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, m)
}

func (h *Handler) apiCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req app.CreateMaterialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.CreateMaterial(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, m)
}

// apiSetUnitConversion handles POST /api/materials/{id}/conversions.
func (h *Handler) apiSetUnitConversion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UnitConversionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.MaterialID = id
	if err := h.svc.SetUnitConversion(r.Context(), req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Options ──────────────────────────────────────────────────────────────────

func (h *Handler) apiListOptionGroups(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetOptionCatalog(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"groups": res.Groups})
}

func (h *Handler) apiOptionCatalog(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetOptionCatalog(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiCreateOptionGroup(w http.ResponseWriter, r *http.Request) {
	var req app.CreateOptionGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.svc.CreateOptionGroup(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, g)
}

func (h *Handler) apiCreateOption(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.CreateOptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.GroupID = id
	o, err := h.svc.CreateOption(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, o)
}

// ── Settings ─────────────────────────────────────────────────────────────────

func (h *Handler) apiGetSetting(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiPutSetting handles PUT /api/settings/{key} with body {"value": "..."}.
func (h *Handler) apiPutSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.PutSetting(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// ── Ordering tokens ──────────────────────────────────────────────────────────

func (h *Handler) apiListOrderingTokens(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListOrderingTokens(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiIssueOrderingToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token        string          `json:"token"`
		MaterialID   int             `json:"material_id"`
		UnitPurchase *string         `json:"unit_purchase"`
		DefaultQty   decimal.Decimal `json:"default_qty"`
		ExpiresAt    string          `json:"expires_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	expires, ok := dateField(w, r, "expires_at", req.ExpiresAt)
	if !ok {
		return
	}
	tok, err := h.svc.IssueOrderingToken(r.Context(), core.IssueTokenInput{
		Token:        req.Token,
		MaterialID:   req.MaterialID,
		UnitPurchase: req.UnitPurchase,
		DefaultQty:   req.DefaultQty,
		ExpiresAt:    expires,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, tok)
}

func (h *Handler) apiSetOrderingTokenEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetOrderingTokenEnabled(r.Context(), id, req.Enabled); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
