// Package facebook reads event listings and event pages from Facebook's web
// frontend.
//
// Listings are read in two tiers. ReadPage fetches the static listing page,
// which only ever exposes the first page of results. ReplayPage re-sends a
// data-fetch request captured from a browser session (see package browser)
// with a new continuation cursor to reach every following page.
package facebook

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/extract"
	"github.com/findrandomevents/harvest/log"
	"github.com/findrandomevents/harvest/prom"
)

// Fetcher issues single HTTP requests. *fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, url string, header http.Header) ([]byte, error)
	Post(ctx context.Context, url string, body string, header http.Header) ([]byte, error)
}

// Client reads listings and event pages.
type Client struct {
	Fetcher Fetcher
	Parser  extract.Parser

	// BaseURL is the origin pages are read from. It can be overridden for
	// tests and defaults to harvest.DefaultBaseURL.
	BaseURL   string
	UserAgent string
}

// New builds a Client that fetches through fetcher.
func New(fetcher Fetcher, opts harvest.Options) *Client {
	return &Client{
		Fetcher:   fetcher,
		Parser:    extract.Scanner{},
		BaseURL:   opts.BaseURL,
		UserAgent: opts.UserAgent,
	}
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return harvest.DefaultBaseURL
	}
	return c.BaseURL
}

func (c *Client) userAgent() string {
	if c.UserAgent == "" {
		return "Mozilla/5.0"
	}
	return c.UserAgent
}

func (c *Client) htmlHeader() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("User-Agent", c.userAgent())
	return h
}

// SourceURL returns the listing URL of spec.
func (c *Client) SourceURL(spec harvest.SourceSpec) string {
	return SourceURL(c.baseURL(), spec)
}

// staticAnchor is the key each listing's first page is stored under.
var staticAnchor = map[harvest.SourceKind]string{
	harvest.GroupKind:       "upcoming_events",
	harvest.PageKind:        "collection",
	harvest.SearchQueryKind: "results",
}

// ReadPage fetches the static listing page of spec and decodes its event IDs
// and continuation flag.
//
// A fetch that runs out of retries returns an empty Page together with the
// FetchFailed error; callers stop paginating that source. A page whose
// listing can't be located decodes as empty with a DecodeMiss error.
func (c *Client) ReadPage(ctx context.Context, spec harvest.SourceSpec) (Page, error) {
	const op errors.Op = "Client.ReadPage"

	url := c.SourceURL(spec)
	ctx, logger := log.With(ctx, zap.String("url", url), zap.String("kind", string(spec.Kind)))

	anchor, ok := staticAnchor[spec.Kind]
	if !ok {
		return Page{}, errors.E(op, errors.Invalid, errors.URL(url), "source kind has no listing")
	}

	html, err := c.Fetcher.Get(ctx, url, c.htmlHeader())
	if err != nil {
		return Page{}, errors.E(op, err)
	}

	raw, ok := c.Parser.Parse(html).Extract(anchor, "")
	if !ok {
		logger.Warn("listing not found in page", zap.String("anchor", anchor))
		return Page{}, errors.E(op, errors.DecodeMiss, errors.URL(url), "no "+anchor)
	}

	var conn *connection
	if spec.Kind == harvest.PageKind {
		var coll pageCollection
		err = json.Unmarshal(raw, &coll)
		conn = coll.PageItems
	} else {
		err = json.Unmarshal(raw, &conn)
	}
	if err != nil {
		logger.Warn("decode listing failed", zap.Error(err))
		return Page{}, errors.E(op, errors.DecodeMiss, errors.URL(url), err)
	}

	page, missed := conn.page(spec.Kind)
	if missed > 0 {
		logger.Warn("listing edges without event id", zap.Int("missed", missed))
	}
	prom.Pages.WithLabelValues(string(spec.Kind), prom.TierStatic).Inc()

	return page, nil
}

// ReplayPage sends a captured data-fetch request and decodes the listing page
// it returns.
//
// A page with no edges is reported as the last page whatever its page_info
// says: the endpoint has been seen to claim more results while returning
// none, and following such a cursor loops forever.
func (c *Client) ReplayPage(ctx context.Context, kind harvest.SourceKind, tmpl harvest.ReplayTemplate) (Page, error) {
	const op errors.Op = "Client.ReplayPage"

	url := GraphQLURL(c.baseURL())
	logger := log.FromContext(ctx)

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("User-Agent", c.userAgent())
	header.Set("Cookie", tmpl.Cookies)

	body, err := c.Fetcher.Post(ctx, url, tmpl.PostData, header)
	if err != nil {
		return Page{}, errors.E(op, err)
	}

	resp, err := decodeGraphQL(body)
	if err != nil {
		logger.Warn("decode replay response failed", zap.Error(err))
		return Page{}, errors.E(op, errors.DecodeMiss, errors.URL(url), err)
	}

	conn := resp.connection(kind)
	if conn == nil {
		if len(resp.Errors) > 0 {
			logger.Warn("replay response has errors", zap.String("errors", joinErrors(resp.Errors)))
			return Page{}, errors.E(op, errors.DecodeMiss, errors.URL(url), resp.Errors[0])
		}
		return Page{}, errors.E(op, errors.DecodeMiss, errors.URL(url), "no listing in response")
	}

	page, missed := conn.page(kind)
	if missed > 0 {
		logger.Warn("listing edges without event id", zap.Int("missed", missed))
	}
	if len(conn.Edges) == 0 {
		page.Cursor.HasNextPage = false
	}
	prom.Pages.WithLabelValues(string(kind), prom.TierReplay).Inc()

	return page, nil
}
