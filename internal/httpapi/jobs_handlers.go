package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mergd/curro-sub001/internal/domain"
)

type JobsHandler struct {
	Store Store
	Log   *slog.Logger
}

// List serves GET /jobs?company_id=&include_removed=&limit=&offset=.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := parseJobQuery(w, r)
	if !ok {
		return
	}
	if v := r.URL.Query().Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			WriteError(w, r, http.StatusBadRequest, "invalid_query", "company_id must be a positive integer")
			return
		}
		q.CompanyID = id
	}
	h.list(w, r, q)
}

func (h JobsHandler) ListForCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	q, ok := parseJobQuery(w, r)
	if !ok {
		return
	}
	q.CompanyID = id
	h.list(w, r, q)
}

func (h JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	job, err := h.Store.GetJob(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h JobsHandler) list(w http.ResponseWriter, r *http.Request, q domain.JobQuery) {
	jobs, err := h.Store.ListJobs(r.Context(), q)
	if err != nil {
		writeStoreError(w, r, h.Log, err)
		return
	}
	if jobs == nil {
		jobs = []domain.JobRecord{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

func parseJobQuery(w http.ResponseWriter, r *http.Request) (domain.JobQuery, bool) {
	var q domain.JobQuery
	v := r.URL.Query()

	if s := v.Get("include_removed"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_query", "include_removed must be a boolean")
			return q, false
		}
		q.IncludeRemoved = b
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "invalid_query", p.name+" must be a non-negative integer")
			return q, false
		}
		*p.dst = n
	}
	return q, true
}
