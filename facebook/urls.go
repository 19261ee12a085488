package facebook

import (
	"net/url"
	"strings"

	"github.com/findrandomevents/harvest"
)

// Path fragments of the listings and endpoints the harvester reads.
const (
	searchPath      = "/events/search/?q="
	groupPrefix     = "/groups/"
	groupPostfix    = "/events"
	pagePostfix     = "/upcoming_hosted_events"
	eventPrefix     = "/events/"
	graphQLEndpoint = "/api/graphql/"
)

// SourceURL returns the listing URL for a seed source. Event ID sources map to
// the event's own page.
func SourceURL(base string, spec harvest.SourceSpec) string {
	base = strings.TrimSuffix(base, "/")

	switch spec.Kind {
	case harvest.GroupKind:
		return base + groupPrefix + url.PathEscape(spec.Value) + groupPostfix
	case harvest.PageKind:
		return base + "/" + url.PathEscape(spec.Value) + pagePostfix
	case harvest.SearchQueryKind:
		return base + searchPath + url.QueryEscape(spec.Value)
	default:
		return EventURL(base, harvest.EventID(spec.Value))
	}
}

// EventURL returns the canonical detail page of an event.
func EventURL(base string, id harvest.EventID) string {
	return strings.TrimSuffix(base, "/") + eventPrefix + url.PathEscape(string(id))
}

// GraphQLURL returns the internal data-fetch endpoint replayed requests are
// sent to.
func GraphQLURL(base string) string {
	return strings.TrimSuffix(base, "/") + graphQLEndpoint
}

// IsGraphQLRequest reports whether a request URL observed in the browser is
// one of the platform's internal data fetches.
func IsGraphQLRequest(u string) bool {
	return strings.Contains(u, "/api/graphql") || strings.Contains(u, "graphql?")
}
