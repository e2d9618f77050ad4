package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog(d.Log), Recover(d.Log), Cors)

	r.Get("/health", Health)

	jh := JobsHandler{Store: d.Store, Log: d.Log}
	r.Get("/jobs", jh.List)
	r.Get("/jobs/{id}", jh.Get)

	ch := CompaniesHandler{Store: d.Store, Hub: d.Hub, Enricher: d.Enricher, Log: d.Log}
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", ch.List)
		r.Post("/", ch.Create)
		r.Get("/{id}", ch.Get)
		r.Put("/{id}", ch.Update)
		r.Delete("/{id}", ch.Delete)
		r.Get("/{id}/jobs", jh.ListForCompany)
		r.Post("/{id}/enrich", ch.Enrich)
	})

	ih := IngestHandler{Ctx: d.Ctx, Ingest: d.Ingest}
	r.Post("/ingest/run", ih.Run)
	r.Get("/ingest/status", ih.Status)

	eh := EventsHandler{Hub: d.Hub}
	r.Get("/events", eh.ServeSSE)

	cfh := ConfigHandler{CfgVal: d.CfgVal, UserCfgPath: d.UserCfgPath, LoadCfg: d.LoadCfg}
	r.Get("/config", cfh.Get)
	r.Put("/config", cfh.Put)
	r.Get("/config/validate", cfh.Validate)
	r.Get("/config/path", cfh.Path)

	return r
}
