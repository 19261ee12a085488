// Package e2e contains end-to-end tests for the harvester. They run from the
// rest interface through a harvest against a fake Facebook frontend down to
// the database layer.
package e2e

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/auth"
	"github.com/findrandomevents/harvest/facebook/fbtest"
	"github.com/findrandomevents/harvest/pg"
	"github.com/findrandomevents/harvest/pg/pgtest"
	"github.com/findrandomevents/harvest/rest"
	"github.com/findrandomevents/harvest/service"
)

// stubServer starts a new httptest.Server with a harvest service whose
// Facebook is fb and whose database is a pgtest temp db. You must call Close
// on the returned server after you're done with it.
func stubServer(t *testing.T, fb *fbtest.Server) *httptest.Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	service := stubService(ctx, t, fb)
	handler := rest.New(service)

	return httptest.NewServer(handler)
}

// stubService returns a Service that harvests from fb with the browser
// capture stubbed out, backed by a pgtest temp db.
func stubService(ctx context.Context, t *testing.T, fb *fbtest.Server) *service.Service {
	db := pgtest.NewDB(t)

	eventStore := &pg.EventStore{DB: db}
	if err := eventStore.Init(ctx); err != nil {
		t.Fatal(err)
	}

	harvester := stubHarvester(fb)

	return &service.Service{
		EventStore: eventStore,

		Harvest: harvester.Harvest,
		Time:    stubTime(time.Date(2024, 8, 17, 14, 0, 0, 0, time.UTC)),

		Auth: stubAuth{},
	}
}

// stubHarvester returns a Harvester that talks to fb over HTTP. Captures
// skip the browser and start replaying at the empty cursor.
func stubHarvester(fb *fbtest.Server) *service.Harvester {
	opts := harvest.DefaultOptions()
	opts.BaseURL = fb.URL
	opts.HTTPReqRetries = 2
	opts.HTTPReqRetryDelay = time.Millisecond

	h := service.NewHarvester(opts)
	h.Capturer = captureFunc(func(ctx context.Context, url string, kind harvest.SourceKind) (*harvest.ReplayTemplate, error) {
		tmpl := fbtest.Template(kind, "")
		return &tmpl, nil
	})
	return h
}

type captureFunc func(ctx context.Context, url string, kind harvest.SourceKind) (*harvest.ReplayTemplate, error)

func (f captureFunc) Capture(ctx context.Context, url string, kind harvest.SourceKind) (*harvest.ReplayTemplate, error) {
	return f(ctx, url, kind)
}

// StubTime mocks out the time with a fixed time.
type stubTime time.Time

func (s stubTime) Now() time.Time {
	return time.Time(s)
}

// StubAuth is a fake auth.Provider that takes the Authorization header and
// sets it as the current user's id. If the header equals "admin", it also sets
// the IsAdmin flag.
//
// When this auth provider is in use you can pass the JWT "user" to a rest.Client
// to simulate a user accessing the API or pass "admin" to simulate an admin
// accessing the API.
type stubAuth struct{}

func (s stubAuth) FromRequest(r *http.Request) (auth.Info, error) {
	var info auth.Info

	header := r.Header.Get("Authorization")
	if header == "" {
		return info, nil
	}

	authParts := strings.Split(header, " ")
	if len(authParts) != 2 {
		return info, errors.New("malformed Authorization header")
	}

	userID := authParts[1]

	return auth.Info{
		ID:      userID,
		IsAdmin: userID == "admin",
	}, nil
}
