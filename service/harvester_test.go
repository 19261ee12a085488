package service

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/facebook"
)

// stubPages serves static pages by source value and replayed pages by source
// value and cursor.
type stubPages struct {
	static  map[string]facebook.Page
	replays map[string]map[string]facebook.Page

	mu          sync.Mutex
	staticCalls int
	replayCalls map[string]int
}

func (s *stubPages) SourceURL(spec harvest.SourceSpec) string {
	return "stub://" + string(spec.Kind) + "/" + spec.Value
}

func (s *stubPages) ReadPage(ctx context.Context, spec harvest.SourceSpec) (facebook.Page, error) {
	s.mu.Lock()
	s.staticCalls++
	s.mu.Unlock()

	page, ok := s.static[spec.Value]
	if !ok {
		return facebook.Page{}, errors.E(errors.FetchFailed, "no such page")
	}
	return page, nil
}

func (s *stubPages) ReplayPage(ctx context.Context, kind harvest.SourceKind, tmpl harvest.ReplayTemplate) (facebook.Page, error) {
	form, err := url.ParseQuery(tmpl.PostData)
	if err != nil {
		return facebook.Page{}, err
	}
	source, cursor := form.Get("source"), form.Get("cursor")

	s.mu.Lock()
	if s.replayCalls == nil {
		s.replayCalls = map[string]int{}
	}
	s.replayCalls[source]++
	s.mu.Unlock()

	page, ok := s.replays[source][cursor]
	if !ok {
		return facebook.Page{}, errors.E(errors.FetchFailed, "no such cursor "+cursor)
	}
	return page, nil
}

func (s *stubPages) replayCount(source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replayCalls[source]
}

type stubDetails struct {
	past map[harvest.EventID]bool
	fail map[harvest.EventID]bool

	mu    sync.Mutex
	calls map[harvest.EventID]int
}

func (s *stubDetails) FetchDetail(ctx context.Context, id harvest.EventID) (*harvest.EventRecord, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[harvest.EventID]int{}
	}
	s.calls[id]++
	s.mu.Unlock()

	if s.fail[id] {
		return nil, errors.E(errors.FetchFailed, id)
	}
	return &harvest.EventRecord{ID: id, Name: "event " + string(id), IsPast: s.past[id]}, nil
}

func (s *stubDetails) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

type stubCapturer struct {
	abort bool

	mu   sync.Mutex
	urls []string
}

func (s *stubCapturer) Capture(ctx context.Context, u string, kind harvest.SourceKind) (*harvest.ReplayTemplate, error) {
	s.mu.Lock()
	s.urls = append(s.urls, u)
	s.mu.Unlock()

	if s.abort {
		return nil, errors.E(errors.CaptureAborted, errors.URL(u))
	}
	source := u[strings.LastIndex(u, "/")+1:]
	return &harvest.ReplayTemplate{PostData: "source=" + source + "&cursor=", Cookies: "c_user=1"}, nil
}

func (s *stubCapturer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func newTestHarvester(pages *stubPages, details *stubDetails, capturer *stubCapturer) *Harvester {
	return &Harvester{
		Pages:    pages,
		Details:  details,
		Capturer: capturer,
		Options:  harvest.DefaultOptions(),
	}
}

func ids(events []harvest.EventRecord) []string {
	var out []string
	for _, e := range events {
		out = append(out, string(e.ID))
	}
	sort.Strings(out)
	return out
}

func page(hasNext bool, cursor string, eventIDs ...harvest.EventID) facebook.Page {
	return facebook.Page{
		EventIDs: eventIDs,
		Cursor:   harvest.PageCursor{HasNextPage: hasNext, EndCursor: cursor},
	}
}

func TestHarvestEmptySeedSet(t *testing.T) {
	pages, details, capturer := &stubPages{}, &stubDetails{}, &stubCapturer{}
	h := newTestHarvester(pages, details, capturer)

	events, err := h.Harvest(context.Background(), harvest.SeedSet{})
	require.NoError(t, err)
	require.Empty(t, events)
	require.Zero(t, pages.staticCalls)
	require.Zero(t, details.total())
	require.Zero(t, capturer.count())
}

func TestHarvestEventID(t *testing.T) {
	for _, test := range []struct {
		Name string
		Past bool
		Want []string
	}{
		{Name: "upcoming", Want: []string{"123"}},
		{Name: "past", Past: true, Want: nil},
	} {
		t.Run(test.Name, func(t *testing.T) {
			details := &stubDetails{past: map[harvest.EventID]bool{"123": test.Past}}
			h := newTestHarvester(&stubPages{}, details, &stubCapturer{})

			seeds := harvest.NewSeedSet(harvest.SourceSpec{Kind: harvest.EventIDKind, Value: "123"})
			events, err := h.Harvest(context.Background(), seeds)
			require.NoError(t, err)
			require.Equal(t, test.Want, ids(events))
			require.Equal(t, 1, details.total())
		})
	}
}

func TestHarvestDeduplicates(t *testing.T) {
	pages := &stubPages{static: map[string]facebook.Page{
		"g1": page(false, "", "1", "2", "3"),
		"p1": page(false, "", "2", "3", "4"),
		"q1": page(false, "", "4", "1"),
	}}
	details := &stubDetails{}
	capturer := &stubCapturer{}
	h := newTestHarvester(pages, details, capturer)
	h.Options.Concurrency = 3

	seeds := harvest.SeedSet{}
	seeds.Add(harvest.EventIDKind, "1", "4", "5", "5")
	seeds.Add(harvest.GroupKind, "g1")
	seeds.Add(harvest.PageKind, "p1")
	seeds.Add(harvest.SearchQueryKind, "q1")

	events, err := h.Harvest(context.Background(), seeds)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(events))

	for id, n := range details.calls {
		require.Equalf(t, 1, n, "detail fetches of %s", id)
	}
	require.Zero(t, capturer.count(), "no listing had more pages")
}

func TestHarvestReplayStopsOnEmptyPage(t *testing.T) {
	for _, derestrict := range []bool{false, true} {
		pages := &stubPages{
			static: map[string]facebook.Page{"g1": page(true, "s1", "1")},
			replays: map[string]map[string]facebook.Page{
				"g1": {
					"":   page(true, "c1", "2", "3"),
					"c1": page(true, "c2"),
					"c2": page(false, "", "9"),
				},
			},
		}
		details := &stubDetails{}
		capturer := &stubCapturer{}
		h := newTestHarvester(pages, details, capturer)
		h.Options.Derestrict = derestrict

		seeds := harvest.NewSeedSet(harvest.SourceSpec{Kind: harvest.GroupKind, Value: "g1"})
		events, err := h.Harvest(context.Background(), seeds)
		require.NoError(t, err)
		require.Equal(t, []string{"1", "2", "3"}, ids(events), "derestrict=%v", derestrict)
		require.Equal(t, 1, capturer.count())
		require.Equal(t, []string{"stub://group/g1"}, capturer.urls)
		require.Equal(t, 2, pages.replayCount("g1"))
	}
}

func TestHarvestCaptureAborted(t *testing.T) {
	pages := &stubPages{static: map[string]facebook.Page{"p1": page(true, "s1", "1", "2")}}
	details := &stubDetails{}
	capturer := &stubCapturer{abort: true}
	h := newTestHarvester(pages, details, capturer)

	seeds := harvest.NewSeedSet(harvest.SourceSpec{Kind: harvest.PageKind, Value: "p1"})
	events, err := h.Harvest(context.Background(), seeds)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, ids(events))
	require.Equal(t, 1, capturer.count())
	require.Zero(t, pages.replayCount("p1"))
}

func TestHarvestDegradesFailures(t *testing.T) {
	pages := &stubPages{static: map[string]facebook.Page{"g1": page(false, "", "1", "2", "3")}}
	details := &stubDetails{
		fail: map[harvest.EventID]bool{"2": true},
		past: map[harvest.EventID]bool{"3": true},
	}
	h := newTestHarvester(pages, details, &stubCapturer{})

	var (
		mu       sync.Mutex
		progress []Progress
	)
	h.OnProgress = func(p Progress) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	}

	seeds := harvest.SeedSet{}
	seeds.Add(harvest.GroupKind, "g1", "missing")

	events, err := h.Harvest(context.Background(), seeds)
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, ids(events))
	for _, e := range events {
		require.False(t, e.IsPast)
	}

	require.Len(t, progress, 3)
	fetched := make([]int, len(progress))
	for i, p := range progress {
		fetched[i] = p.Fetched
		require.Equal(t, 3, p.Discovered)
	}
	sort.Ints(fetched)
	require.Equal(t, []int{1, 2, 3}, fetched)
}

func TestHarvestInvalidOptions(t *testing.T) {
	h := newTestHarvester(&stubPages{}, &stubDetails{}, &stubCapturer{})
	h.Options.Concurrency = 0

	_, err := h.Harvest(context.Background(), harvest.SeedSet{})
	require.True(t, errors.Is(errors.Invalid, err), "err = %v", err)
}

func TestHarvestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	details := &stubDetails{}
	h := newTestHarvester(&stubPages{}, details, &stubCapturer{})

	seeds := harvest.NewSeedSet(harvest.SourceSpec{Kind: harvest.EventIDKind, Value: "1"})
	_, err := h.Harvest(ctx, seeds)
	require.Error(t, err)
	require.Zero(t, details.total())
}

func TestDiscoverySetClaim(t *testing.T) {
	set := NewDiscoverySet()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if set.Claim("42") {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, claimed)
	require.Equal(t, 1, set.Len())
	require.True(t, set.Claim("43"))
	require.Equal(t, 2, set.Len())
}
