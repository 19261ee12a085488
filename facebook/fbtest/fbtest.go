// Package fbtest runs a fake Facebook web frontend for tests. It serves
// listing pages, event pages and the data-fetch endpoint in the shapes the
// facebook package decodes, and counts the requests it receives.
package fbtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/findrandomevents/harvest"
)

// Event is an event page served by the fake.
type Event struct {
	Name        string
	Description string
	IsPast      bool
	IsCanceled  bool
	Start       int64
	Place       string
	Address     string
	Latitude    float64
	Longitude   float64
	Hosts       []string
	Interested  int
}

// Listing is one page of a listing.
type Listing struct {
	IDs         []harvest.EventID
	HasNextPage bool
	EndCursor   string
}

// Server is a fake frontend. Fill in the maps before sending requests.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Events are served at /events/<id>.
	Events map[harvest.EventID]Event
	// Listings are the static first pages of sources.
	Listings map[harvest.SourceSpec]Listing
	// Replays are data-fetch pages keyed by the cursor sent in the request.
	Replays map[string]Listing

	detailHits map[harvest.EventID]int
	requests   int
}

// NewServer starts a fake frontend. Call Close when done.
func NewServer() *Server {
	s := &Server{
		Events:     map[harvest.EventID]Event{},
		Listings:   map[harvest.SourceSpec]Listing{},
		Replays:    map[string]Listing{},
		detailHits: map[harvest.EventID]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// DetailHits returns how many times the page of id was requested.
func (s *Server) DetailHits(id harvest.EventID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailHits[id]
}

// Requests returns the number of requests served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Template returns a replay template whose first request asks for the page
// stored under cursor in Replays, decoded as a listing of kind.
func Template(kind harvest.SourceKind, cursor string) harvest.ReplayTemplate {
	vars, _ := json.Marshal(map[string]string{"cursor": cursor, "kind": string(kind)})
	return harvest.ReplayTemplate{
		PostData: "av=0&doc_id=1234&variables=" + url.QueryEscape(string(vars)),
		Cookies:  "c_user=1; xs=abc",
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/api/graphql/" && r.Method == http.MethodPost:
		s.serveReplay(w, r)
	case strings.HasPrefix(path, "/events/search"):
		s.serveListing(w, harvest.SourceSpec{Kind: harvest.SearchQueryKind, Value: r.URL.Query().Get("q")})
	case strings.HasPrefix(path, "/events/"):
		s.serveEvent(w, harvest.EventID(strings.TrimPrefix(path, "/events/")))
	case strings.HasPrefix(path, "/groups/") && strings.HasSuffix(path, "/events"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/groups/"), "/events")
		s.serveListing(w, harvest.SourceSpec{Kind: harvest.GroupKind, Value: id})
	case strings.HasSuffix(path, "/upcoming_hosted_events"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/upcoming_hosted_events")
		s.serveListing(w, harvest.SourceSpec{Kind: harvest.PageKind, Value: id})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveListing(w http.ResponseWriter, spec harvest.SourceSpec) {
	s.mu.Lock()
	l, ok := s.Listings[spec]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, nil)
		return
	}

	conn := connection(spec.Kind, l)
	var blob interface{}
	switch spec.Kind {
	case harvest.GroupKind:
		blob = map[string]interface{}{"upcoming_events": conn}
	case harvest.PageKind:
		blob = map[string]interface{}{"collection": map[string]interface{}{"pageItems": conn}}
	case harvest.SearchQueryKind:
		blob = map[string]interface{}{"results": conn}
	}
	writeHTML(w, blob)
}

func (s *Server) serveEvent(w http.ResponseWriter, id harvest.EventID) {
	s.mu.Lock()
	s.detailHits[id]++
	e, ok := s.Events[id]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, nil)
		return
	}

	var hosts []interface{}
	for _, h := range e.Hosts {
		hosts = append(hosts, map[string]interface{}{
			"name":            h,
			"url":             "https://www.facebook.com/" + h,
			"profile_picture": map[string]string{"uri": "https://img/" + h},
		})
	}

	writeHTML(w,
		map[string]interface{}{"event": map[string]interface{}{
			"id": id, "name": e.Name, "is_online": false, "is_past": e.IsPast, "is_canceled": e.IsCanceled,
		}},
		map[string]interface{}{"event": map[string]interface{}{
			"id": id, "one_line_address": e.Address, "event_buy_ticket_url": nil,
		}},
		map[string]interface{}{
			"cover_photo":       map[string]interface{}{"photo": map[string]interface{}{"full_image": map[string]string{"uri": "https://img/cover/" + string(id)}, "accessibility_caption": "cover"}},
			"event_description": map[string]string{"text": e.Description},
			"event_place": map[string]interface{}{
				"name":     e.Place,
				"location": map[string]float64{"latitude": e.Latitude, "longitude": e.Longitude},
			},
			"event_hosts_that_can_view_guestlist":    hosts,
			"event_connected_users_public_responded": map[string]int{"count": e.Interested},
		},
		map[string]interface{}{"data": map[string]interface{}{
			"tz_display_name": "UTC", "start_timestamp": e.Start, "end_timestamp": e.Start + 3600,
		}},
	)
}

func (s *Server) serveReplay(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var vars struct {
		Cursor string `json:"cursor"`
		Kind   string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(r.PostForm.Get("variables")), &vars); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	l, ok := s.Replays[vars.Cursor]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	kind := harvest.SourceKind(vars.Kind)
	conn := connection(kind, l)
	var data interface{}
	switch kind {
	case harvest.GroupKind:
		data = map[string]interface{}{"node": map[string]interface{}{"upcoming_events": conn}}
	case harvest.PageKind:
		data = map[string]interface{}{"node": map[string]interface{}{"pageItems": conn}}
	case harvest.SearchQueryKind:
		data = map[string]interface{}{"serpResponse": map[string]interface{}{"results": conn}}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func connection(kind harvest.SourceKind, l Listing) map[string]interface{} {
	edges := []interface{}{}
	for _, id := range l.IDs {
		var e interface{}
		switch kind {
		case harvest.GroupKind:
			e = map[string]interface{}{"node": map[string]interface{}{"id": id}}
		case harvest.PageKind:
			e = map[string]interface{}{"node": map[string]interface{}{"node": map[string]interface{}{"id": id}}}
		case harvest.SearchQueryKind:
			e = map[string]interface{}{"rendering_strategy": map[string]interface{}{
				"view_model": map[string]interface{}{"profile": map[string]interface{}{"id": id}},
			}}
		}
		edges = append(edges, e)
	}
	return map[string]interface{}{
		"edges": edges,
		"page_info": map[string]interface{}{
			"has_next_page": l.HasNextPage,
			"end_cursor":    l.EndCursor,
		},
	}
}

func writeHTML(w http.ResponseWriter, blobs ...interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!DOCTYPE html><html><head>")
	for _, b := range blobs {
		js, _ := json.Marshal(b)
		fmt.Fprintf(w, `<script type="application/json" data-sjs>%s</script>`, js)
	}
	fmt.Fprint(w, "</head><body></body></html>")
}
