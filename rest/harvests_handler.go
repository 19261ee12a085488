package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/prom"
	"github.com/findrandomevents/harvest/service"
)

// HarvestsHandler starts harvests over REST.
type HarvestsHandler struct {
	http.Handler // router

	service *service.Service
}

func newHarvestsHandler(service *service.Service) *HarvestsHandler {
	h := &HarvestsHandler{
		service: service,
	}

	m := mux.NewRouter()
	m.Handle(
		"/",
		prom.InstrumentHandler("HarvestRun", http.HandlerFunc(h.HandleRun)),
	).Methods("POST")

	h.Handler = m

	return h
}

// HandleRun wraps Service.HarvestRun in a REST interface. The request blocks
// until the harvest is done.
func (h *HarvestsHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		var req harvest.HarvestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.E(errors.Invalid, err)
		}

		return h.service.HarvestRun(ctx, req)
	})
}
