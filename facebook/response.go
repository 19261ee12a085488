package facebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/findrandomevents/harvest"
)

// Error is an error entry of a data-fetch response.
type Error struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Code     int    `json:"code"`
	Summary  string `json:"summary"`
}

func (f Error) Error() string {
	return fmt.Sprintf("%s severity=%q code=%d", f.Message, f.Severity, f.Code)
}

// Page is one decoded page of a listing.
type Page struct {
	EventIDs []harvest.EventID
	Cursor   harvest.PageCursor
}

// connection is the graph-style paginated list used by every listing.
type connection struct {
	Edges    []edge   `json:"edges"`
	PageInfo pageInfo `json:"page_info"`
}

type pageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

type idNode struct {
	ID   string  `json:"id"`
	Node *idNode `json:"node"`
}

// edge holds the fields of all three listing shapes. Group edges carry the
// event at node.id, page edges at node.node.id and search edges at
// rendering_strategy.view_model.profile.id.
type edge struct {
	Node              *idNode `json:"node"`
	RenderingStrategy *struct {
		ViewModel *struct {
			Profile *idNode `json:"profile"`
		} `json:"view_model"`
	} `json:"rendering_strategy"`
}

func (e edge) eventID(kind harvest.SourceKind) (harvest.EventID, bool) {
	var id string
	switch kind {
	case harvest.GroupKind:
		if e.Node != nil {
			id = e.Node.ID
		}
	case harvest.PageKind:
		if e.Node != nil && e.Node.Node != nil {
			id = e.Node.Node.ID
		}
	case harvest.SearchQueryKind:
		if rs := e.RenderingStrategy; rs != nil && rs.ViewModel != nil && rs.ViewModel.Profile != nil {
			id = rs.ViewModel.Profile.ID
		}
	}
	return harvest.EventID(id), id != ""
}

// page projects the connection's edges into event IDs. Edges the projection
// can't resolve are counted in missed.
func (c *connection) page(kind harvest.SourceKind) (p Page, missed int) {
	if c == nil {
		return p, 0
	}
	for _, e := range c.Edges {
		id, ok := e.eventID(kind)
		if !ok {
			missed++
			continue
		}
		p.EventIDs = append(p.EventIDs, id)
	}
	p.Cursor = harvest.PageCursor{
		HasNextPage: c.PageInfo.HasNextPage,
		EndCursor:   c.PageInfo.EndCursor,
	}
	return p, missed
}

// pageCollection is the static payload anchored at "collection" on page
// listings.
type pageCollection struct {
	PageItems *connection `json:"pageItems"`
}

// graphQLResponse is the envelope of a replayed data fetch. Group and page
// listings nest the connection under data.node, search under
// data.serpResponse.
type graphQLResponse struct {
	Data *struct {
		Node *struct {
			UpcomingEvents *connection `json:"upcoming_events"`
			PageItems      *connection `json:"pageItems"`
		} `json:"node"`
		SerpResponse *struct {
			Results *connection `json:"results"`
		} `json:"serpResponse"`
	} `json:"data"`
	Errors []Error `json:"errors"`
}

func (r graphQLResponse) connection(kind harvest.SourceKind) *connection {
	if r.Data == nil {
		return nil
	}
	switch kind {
	case harvest.GroupKind:
		if r.Data.Node != nil {
			return r.Data.Node.UpcomingEvents
		}
	case harvest.PageKind:
		if r.Data.Node != nil {
			return r.Data.Node.PageItems
		}
	case harvest.SearchQueryKind:
		if r.Data.SerpResponse != nil {
			return r.Data.SerpResponse.Results
		}
	}
	return nil
}

// decodeGraphQL decodes the first JSON document of a data-fetch response.
// Responses may start with an anti-hijacking prefix and may stream further
// documents after the first one.
func decodeGraphQL(body []byte) (graphQLResponse, error) {
	var resp graphQLResponse

	body = bytes.TrimSpace(body)
	body = bytes.TrimPrefix(body, []byte("for (;;);"))

	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func joinErrors(errs []Error) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
