package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/enrich"
	"github.com/mergd/curro-sub001/internal/events"
)

type CompaniesHandler struct {
	Store    Store
	Hub      *events.Hub
	Enricher enrich.Enricher
	Log      *slog.Logger
}

func (h CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Store.ListCompanies(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	if cs == nil {
		cs = []domain.Company{}
	}
	WriteJSON(w, http.StatusOK, cs)
}

func (h CompaniesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.Store.GetCompany(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (h CompaniesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.CompanyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := in.Validate()
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	c, err = h.Store.CreateCompany(r.Context(), c)
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	h.publish(r.Context(), "created", c)
	WriteJSON(w, http.StatusCreated, c)
}

func (h CompaniesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in domain.CompanyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := in.Validate()
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	c, err = h.Store.UpdateCompany(r.Context(), id, c)
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	h.publish(r.Context(), "updated", c)
	WriteJSON(w, http.StatusOK, c)
}

func (h CompaniesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteCompany(r.Context(), id); err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	h.publish(r.Context(), "deleted", domain.Company{ID: id})
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

// Enrich asks the model for company details and stores them.
func (h CompaniesHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	if h.Enricher == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "enrich_disabled", "enrichment is not configured")
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.Store.GetCompany(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}

	site := c.Website
	if site == "" {
		site = c.JobBoardURL
	}
	d, err := h.Enricher.Enrich(r.Context(), c.Name, site)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.Log.Warn("enrich failed", "company", c.Name, "err", err)
		WriteError(w, r, status, "enrich_failed", err.Error())
		return
	}

	raw, err := json.Marshal(d)
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	if err := h.Store.SetCompanyDetails(r.Context(), id, raw); err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	c.Details = raw
	h.publish(r.Context(), "enriched", c)
	WriteJSON(w, http.StatusOK, c)
}

func (h CompaniesHandler) publish(ctx context.Context, action string, c domain.Company) {
	if h.Hub == nil {
		return
	}
	h.Hub.Publish(events.MakeEvent(RequestIDFrom(ctx), events.TypeCompany, map[string]any{
		"action":  action,
		"company": c,
	}))
}
