// Package rest contains a REST handler for the harvester. It wraps Service
// in a web-accessible API.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/findrandomevents/harvest/auth"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/log"
	"github.com/findrandomevents/harvest/service"
)

// New creates a new REST service wrapping a harvest Service.
func New(service *service.Service) *Handler {
	return &Handler{
		Auth: service.Auth,

		EventsHandler:   newEventsHandler(service),
		HarvestsHandler: newHarvestsHandler(service),
	}
}

// Handler is an http.Handler that provides a REST interface for the
// harvester.
type Handler struct {
	Auth auth.Provider

	EventsHandler   *EventsHandler
	HarvestsHandler *HarvestsHandler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var head string
	head, r.URL.Path = ShiftPath(r.URL.Path)

	// Retrieve the logger from HTTP middleware, if set.
	ctx := r.Context()
	logger := log.FromContext(ctx)

	// Get auth info from the JWT header
	user, err := h.Auth.FromRequest(r)
	if err == auth.ErrExpired {
		writeErrorResp(w, errors.Response{
			Error:  "auth token expired",
			Status: http.StatusUnauthorized,
		})
		return

	} else if err != nil {
		logger.Warn("parse auth failed", zap.Error(err))
	}
	ctx = user.WithContext(ctx)

	// Decorate the logger with the user id
	logger = logger.With(zap.String("userid", user.ID))
	ctx = log.ToContext(ctx, logger)
	r = r.WithContext(ctx)

	switch head {
	case "events":
		if h.EventsHandler != nil {
			h.EventsHandler.ServeHTTP(w, r)
		} else {
			http.NotFound(w, r)
		}

	case "harvests":
		if h.HarvestsHandler != nil {
			h.HarvestsHandler.ServeHTTP(w, r)
		} else {
			http.NotFound(w, r)
		}

	case "healthz":
		fmt.Fprintln(w, "ok")

	default:
		http.NotFound(w, r)
	}
}

// ShiftPath splits off the first component of p, which will be cleaned of
// relative components before processing. head will never contain a slash and
// tail will always be a rooted path without trailing slash.
func ShiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)
	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}

func handleJSON(w http.ResponseWriter, r *http.Request, f func(context.Context) (interface{}, error)) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	resp, err := f(ctx)
	if err != nil {
		errResp := errors.ResponseForError(err)
		if errResp.Status >= 500 {
			logger.Error("internal server error", zap.Error(err))
		} else {
			logger.Warn("handler failed", zap.Error(err))
		}

		if auth.User(ctx).IsAdmin { // show the full error if it's an admin
			errResp.Error = fmt.Sprintf("%s: %s", errResp.Error, err.Error())
		}

		writeErrorResp(w, errResp)
		return
	}

	js, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		logger.Error("write json failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(js)
}

func writeErrorResp(w http.ResponseWriter, resp errors.Response) {
	js, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.Status)
	w.Write(js)
}
