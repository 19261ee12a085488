package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/browser"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/facebook"
	"github.com/findrandomevents/harvest/fetch"
	"github.com/findrandomevents/harvest/log"
	"github.com/findrandomevents/harvest/prom"
)

// PageReader reads listing pages, either statically or by replaying a
// captured data-fetch request.
type PageReader interface {
	SourceURL(spec harvest.SourceSpec) string
	ReadPage(ctx context.Context, spec harvest.SourceSpec) (facebook.Page, error)
	ReplayPage(ctx context.Context, kind harvest.SourceKind, tmpl harvest.ReplayTemplate) (facebook.Page, error)
}

// DetailFetcher fetches one event's record. A nil record with a nil error
// means the event is not to be harvested.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id harvest.EventID) (*harvest.EventRecord, error)
}

// Capturer captures the data-fetch request a listing page makes while
// being scrolled.
type Capturer interface {
	Capture(ctx context.Context, url string, kind harvest.SourceKind) (*harvest.ReplayTemplate, error)
}

// Progress is reported after every finished detail fetch.
type Progress struct {
	// Discovered is the number of distinct event IDs seen so far.
	Discovered int
	// Fetched is the number of detail fetches that have finished.
	Fetched int
}

// Harvester turns seed sources into event records.
type Harvester struct {
	Pages    PageReader
	Details  DetailFetcher
	Capturer Capturer
	Options  harvest.Options

	// OnProgress, if set, is called concurrently from the fetch tasks.
	OnProgress func(Progress)
}

// NewHarvester wires a Harvester to the live site: a retrying HTTP client,
// the Facebook page reader and a Chrome capturer.
func NewHarvester(opts harvest.Options) *Harvester {
	client := facebook.New(fetch.New(opts), opts)

	capturer := browser.New()
	capturer.ExecPath = opts.ChromePath
	capturer.NoSandbox = opts.IsAWS

	return &Harvester{
		Pages:    client,
		Details:  client,
		Capturer: capturer,
		Options:  opts,
	}
}

// Harvest crawls every source in seeds and returns the events found, in the
// order their detail fetches finished.
//
// Sources run on a pool of Options.Concurrency tasks. A source whose static
// page has more results is handed to a second pool of
// Options.BrowserPoolSize tasks that captures and replays its pagination.
// Failures inside a source only cut that source short; Harvest itself fails
// only for invalid options or when ctx ends.
func (h *Harvester) Harvest(ctx context.Context, seeds harvest.SeedSet) ([]harvest.EventRecord, error) {
	const op errors.Op = "Harvester.Harvest"

	if err := h.Options.Validate(); err != nil {
		return nil, errors.E(op, errors.Invalid, err)
	}

	r := &run{
		h:        h,
		seen:     NewDiscoverySet(),
		results:  &Results{},
		browsers: semaphore.NewWeighted(int64(h.Options.BrowserPoolSize())),
	}

	var sources errgroup.Group
	sources.SetLimit(h.Options.Concurrency)

	for _, spec := range seeds.Specs() {
		spec := spec
		sources.Go(func() error {
			r.source(ctx, spec)
			return nil
		})
	}

	// Paginations are only started by source tasks, so once those are
	// done no new pagination can be added.
	sources.Wait()
	r.paginations.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.E(op, err)
	}

	events := r.results.Events()
	log.FromContext(ctx).Info("harvest finished",
		zap.Int("sources", seeds.Len()),
		zap.Int("discovered", r.seen.Len()),
		zap.Int("events", len(events)))

	return events, nil
}

// run is the state of one Harvest call.
type run struct {
	h *Harvester

	seen    *DiscoverySet
	results *Results
	fetched atomic.Int64

	browsers    *semaphore.Weighted
	paginations errgroup.Group
}

func (r *run) source(ctx context.Context, spec harvest.SourceSpec) {
	if spec.Kind == harvest.EventIDKind {
		r.fetchDetails(ctx, []harvest.EventID{harvest.EventID(spec.Value)})
		return
	}

	ctx, logger := log.With(ctx, zap.Stringer("source", spec))

	page, err := r.h.Pages.ReadPage(ctx, spec)
	if err != nil {
		logger.Warn("read listing failed", zap.Error(err))
		return
	}

	if page.Cursor.HasNextPage {
		r.paginations.Go(func() error {
			r.paginate(ctx, spec)
			return nil
		})
	}

	r.fetchDetails(ctx, page.EventIDs)
}

// paginate captures the listing's data-fetch request in a browser and then
// replays it page by page until the listing runs out.
func (r *run) paginate(ctx context.Context, spec harvest.SourceSpec) {
	logger := log.FromContext(ctx)

	if err := r.browsers.Acquire(ctx, 1); err != nil {
		return
	}
	defer r.browsers.Release(1)

	tmpl, err := r.h.Capturer.Capture(ctx, r.h.Pages.SourceURL(spec), spec.Kind)

	if err != nil {
		if errors.Is(errors.CaptureAborted, err) {
			logger.Info("no more pages", zap.Error(err))
		} else {
			logger.Warn("capture failed", zap.Error(err))
		}
		return
	}
	if tmpl == nil {
		return
	}

	var pending errgroup.Group
	defer pending.Wait()

	cursor := ""
	for pageNum := 2; ; pageNum++ {
		page, err := r.h.Pages.ReplayPage(ctx, spec.Kind, *tmpl)
		if err != nil {
			logger.Warn("replay failed", zap.Int("page", pageNum), zap.Error(err))
			return
		}

		ids := page.EventIDs
		if r.h.Options.Derestrict {
			pending.Go(func() error {
				r.fetchDetails(ctx, ids)
				return nil
			})
		} else {
			r.fetchDetails(ctx, ids)
		}

		// An empty page ends the listing even if it claims otherwise.
		if !page.Cursor.HasNextPage || len(ids) == 0 {
			return
		}
		if page.Cursor.EndCursor == cursor {
			logger.Warn("cursor did not advance", zap.Int("page", pageNum))
			return
		}
		cursor = page.Cursor.EndCursor

		if err := tmpl.SetCursor(cursor); err != nil {
			logger.Warn("set cursor failed", zap.Error(err))
			return
		}
	}
}

// fetchDetails fetches every ID in ids that no other task has claimed, at
// most Options.Concurrency at a time.
func (r *run) fetchDetails(ctx context.Context, ids []harvest.EventID) {
	var claimed []harvest.EventID
	for _, id := range ids {
		if r.seen.Claim(id) {
			claimed = append(claimed, id)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.h.Options.Concurrency)

	for _, id := range claimed {
		id := id
		g.Go(func() error {
			r.fetchDetail(ctx, id)
			return nil
		})
	}
	g.Wait()
}

func (r *run) fetchDetail(ctx context.Context, id harvest.EventID) {
	if ctx.Err() != nil {
		return
	}

	event, err := r.h.Details.FetchDetail(ctx, id)
	switch {
	case err != nil:
		log.FromContext(ctx).Warn("fetch event failed", zap.String("eventID", string(id)), zap.Error(err))
		prom.Events.WithLabelValues(prom.EventFailed).Inc()
	case event == nil || event.IsPast:
		prom.Events.WithLabelValues(prom.EventPast).Inc()
	default:
		r.results.Append(*event)
		prom.Events.WithLabelValues(prom.EventKept).Inc()
	}

	fetched := r.fetched.Add(1)
	if r.h.OnProgress != nil {
		r.h.OnProgress(Progress{Discovered: r.seen.Len(), Fetched: int(fetched)})
	}
}
