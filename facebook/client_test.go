package facebook

import (
	"context"
	"testing"

	"github.com/go-test/deep"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/facebook/fbtest"
	"github.com/findrandomevents/harvest/fetch"
)

func testClient(srv *fbtest.Server) *Client {
	opts := harvest.DefaultOptions()
	opts.BaseURL = srv.URL
	opts.HTTPReqRetries = 1
	return New(fetch.New(opts), opts)
}

func TestSourceURL(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Spec harvest.SourceSpec
		Want string
	}{
		{harvest.SourceSpec{Kind: harvest.GroupKind, Value: "123"}, "https://www.facebook.com/groups/123/events"},
		{harvest.SourceSpec{Kind: harvest.PageKind, Value: "somepage"}, "https://www.facebook.com/somepage/upcoming_hosted_events"},
		{harvest.SourceSpec{Kind: harvest.SearchQueryKind, Value: "jazz berlin"}, "https://www.facebook.com/events/search/?q=jazz+berlin"},
		{harvest.SourceSpec{Kind: harvest.EventIDKind, Value: "42"}, "https://www.facebook.com/events/42"},
	} {
		if got := SourceURL(harvest.DefaultBaseURL, test.Spec); got != test.Want {
			t.Errorf("SourceURL(%v) = %q, want %q", test.Spec, got, test.Want)
		}
	}
}

func TestReadPage(t *testing.T) {
	t.Parallel()

	srv := fbtest.NewServer()
	defer srv.Close()

	listing := fbtest.Listing{IDs: []harvest.EventID{"1", "2"}, HasNextPage: true, EndCursor: "c1"}
	specs := []harvest.SourceSpec{
		{Kind: harvest.GroupKind, Value: "g"},
		{Kind: harvest.PageKind, Value: "p"},
		{Kind: harvest.SearchQueryKind, Value: "live music"},
	}
	for _, spec := range specs {
		srv.Listings[spec] = listing
	}

	client := testClient(srv)
	for _, spec := range specs {
		page, err := client.ReadPage(context.Background(), spec)
		if err != nil {
			t.Fatalf("ReadPage(%v): %v", spec, err)
		}
		want := Page{
			EventIDs: []harvest.EventID{"1", "2"},
			Cursor:   harvest.PageCursor{HasNextPage: true, EndCursor: "c1"},
		}
		if diff := deep.Equal(page, want); diff != nil {
			t.Errorf("ReadPage(%v): %v", spec, diff)
		}
	}
}

func TestReadPageFetchFailed(t *testing.T) {
	t.Parallel()

	srv := fbtest.NewServer()
	defer srv.Close()

	page, err := testClient(srv).ReadPage(context.Background(), harvest.SourceSpec{Kind: harvest.GroupKind, Value: "missing"})
	if !errors.Is(errors.FetchFailed, err) {
		t.Fatalf("got err %v, want FetchFailed", err)
	}
	if page.Cursor.HasNextPage || len(page.EventIDs) != 0 {
		t.Errorf("got non-empty page %+v", page)
	}
}

func TestReplayPage(t *testing.T) {
	t.Parallel()

	srv := fbtest.NewServer()
	defer srv.Close()

	srv.Replays["c1"] = fbtest.Listing{IDs: []harvest.EventID{"3", "4"}, HasNextPage: true, EndCursor: "c2"}
	srv.Replays["c2"] = fbtest.Listing{HasNextPage: true, EndCursor: "c3"}

	client := testClient(srv)
	for _, kind := range []harvest.SourceKind{harvest.GroupKind, harvest.PageKind, harvest.SearchQueryKind} {
		tmpl := fbtest.Template(kind, "c1")

		page, err := client.ReplayPage(context.Background(), kind, tmpl)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		want := Page{
			EventIDs: []harvest.EventID{"3", "4"},
			Cursor:   harvest.PageCursor{HasNextPage: true, EndCursor: "c2"},
		}
		if diff := deep.Equal(page, want); diff != nil {
			t.Errorf("%s page 1: %v", kind, diff)
		}

		if err := tmpl.SetCursor(page.Cursor.EndCursor); err != nil {
			t.Fatal(err)
		}
		page, err = client.ReplayPage(context.Background(), kind, tmpl)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if page.Cursor.HasNextPage {
			t.Errorf("%s: empty page reported a next page", kind)
		}
	}
}

func TestFetchDetail(t *testing.T) {
	t.Parallel()

	srv := fbtest.NewServer()
	defer srv.Close()

	srv.Events["123"] = fbtest.Event{
		Name:        "Jazz night",
		Description: "Bring friends",
		Start:       1700000000,
		Place:       "The Club",
		Address:     "1 Main St",
		Latitude:    52.5,
		Longitude:   13.4,
		Hosts:       []string{"club"},
		Interested:  12,
	}
	srv.Events["456"] = fbtest.Event{Name: "Last year", IsPast: true}

	client := testClient(srv)

	event, err := client.FetchDetail(context.Background(), "123")
	if err != nil {
		t.Fatal(err)
	}

	start, end, interested := int64(1700000000), int64(1700003600), 12
	want := &harvest.EventRecord{
		ID:          "123",
		URL:         srv.URL + "/events/123",
		Name:        "Jazz night",
		Description: "Bring friends",
		CoverPhoto:  harvest.CoverPhoto{ImageURL: "https://img/cover/123", Caption: "cover"},
		Timestamp:   harvest.Timestamp{Timezone: "UTC", Start: &start, End: &end},
		Location: harvest.Location{
			Name:        "The Club",
			Address:     "1 Main St",
			Coordinates: &harvest.Coordinates{Latitude: 52.5, Longitude: 13.4},
		},
		Hosts: []harvest.Host{{
			Name:     "club",
			URL:      "https://www.facebook.com/club",
			ImageURL: "https://img/club",
		}},
		UsersInterestedCount: &interested,
	}
	if diff := deep.Equal(event, want); diff != nil {
		t.Error(diff)
	}

	past, err := client.FetchDetail(context.Background(), "456")
	if err != nil {
		t.Fatal(err)
	}
	if past != nil {
		t.Errorf("past event returned: %+v", past)
	}

	missing, err := client.FetchDetail(context.Background(), "789")
	if !errors.Is(errors.FetchFailed, err) {
		t.Errorf("got err %v, want FetchFailed", err)
	}
	if missing != nil {
		t.Errorf("missing event returned: %+v", missing)
	}
}

func TestPickCover(t *testing.T) {
	t.Parallel()

	str := func(s string) *string { return &s }
	image := func(uri, caption *string) *coverImage {
		img := &coverImage{Caption: caption}
		if uri != nil {
			img.FullImage = &imageRef{URI: uri}
		}
		return img
	}

	for _, test := range []struct {
		Name  string
		Photo *coverImage
		Media *coverImage
		Want  harvest.CoverPhoto
	}{
		{
			Name:  "media only",
			Media: image(str("https://media"), str("media caption")),
			Want:  harvest.CoverPhoto{ImageURL: "https://media", Caption: "media caption"},
		},
		{
			Name:  "photo wins",
			Photo: image(str("https://photo"), str("photo caption")),
			Media: image(str("https://media"), str("media caption")),
			Want:  harvest.CoverPhoto{ImageURL: "https://photo", Caption: "photo caption"},
		},
		{
			Name:  "per field fallback",
			Photo: image(nil, str("photo caption")),
			Media: image(str("https://media"), nil),
			Want:  harvest.CoverPhoto{ImageURL: "https://media", Caption: "photo caption"},
		},
		{
			Name:  "empty caption is kept",
			Photo: image(str("https://photo"), str("")),
			Media: image(str("https://media"), str("media caption")),
			Want:  harvest.CoverPhoto{ImageURL: "https://photo", Caption: ""},
		},
		{
			Name:  "empty uri is kept",
			Photo: image(str(""), nil),
			Media: image(str("https://media"), nil),
			Want:  harvest.CoverPhoto{},
		},
		{
			Name: "nothing",
			Want: harvest.CoverPhoto{},
		},
	} {
		got := pickCover(test.Photo, test.Media)
		if diff := deep.Equal(got, test.Want); diff != nil {
			t.Errorf("%s: %v", test.Name, diff)
		}
	}
}
