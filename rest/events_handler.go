package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/prom"
	"github.com/findrandomevents/harvest/service"
)

// EventsHandler provides a REST interface to the stored events.
type EventsHandler struct {
	http.Handler // router

	service *service.Service
}

func newEventsHandler(service *service.Service) *EventsHandler {
	h := &EventsHandler{
		service: service,
	}

	m := mux.NewRouter()
	m.Handle(
		"/search",
		prom.InstrumentHandler("EventSearch", http.HandlerFunc(h.HandleSearch)),
	).Methods("POST", "GET")
	m.Handle(
		"/{id}",
		prom.InstrumentHandler("EventGet", http.HandlerFunc(h.HandleGet)),
	).Methods("GET")

	h.Handler = m

	return h
}

// HandleGet wraps Service.EventGet in a REST interface
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]

	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		return h.service.EventGet(ctx, harvest.EventID(eventID))
	})
}

// HandleSearch wraps Service.EventSearch in a REST interface. The search
// request is read from the "json" form value or, failing that, the body.
func (h *EventsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	handleJSON(w, r, func(ctx context.Context) (interface{}, error) {
		var js []byte
		var err error

		if r.FormValue("json") != "" {
			js = []byte(r.FormValue("json"))
		} else {
			js, err = io.ReadAll(r.Body)
			if err != nil {
				return nil, errors.E(errors.Invalid, err)
			}
		}

		var params harvest.EventSearchRequest
		if len(js) > 0 {
			if err := json.Unmarshal(js, &params); err != nil {
				return nil, errors.E(errors.Invalid, err)
			}
		}

		return h.service.EventSearch(ctx, params)
	})
}
