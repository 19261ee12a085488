package harvest

import (
	"net/url"
	"testing"
)

func TestReplayTemplateSetCursor(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name     string
		PostData string
		Cursor   string
		Want     string
	}{
		{
			Name:     "cursor in variables",
			PostData: "av=0&fb_api_req_friendly_name=GroupEvents&variables=" + url.QueryEscape(`{"count":8,"cursor":"AAA","id":"42"}`) + "&doc_id=7",
			Cursor:   "BBB",
			Want:     "av=0&fb_api_req_friendly_name=GroupEvents&variables=" + url.QueryEscape(`{"count":8,"cursor":"BBB","id":"42"}`) + "&doc_id=7",
		},
		{
			Name:     "null cursor",
			PostData: "variables=" + url.QueryEscape(`{"cursor":null,"id":"42"}`) + "&doc_id=7",
			Cursor:   "next",
			Want:     "variables=" + url.QueryEscape(`{"cursor":"next","id":"42"}`) + "&doc_id=7",
		},
		{
			Name:     "no cursor yet",
			PostData: "variables=" + url.QueryEscape(`{"id":"42"}`),
			Cursor:   "next",
			Want:     "variables=" + url.QueryEscape(`{"cursor":"next","id":"42"}`),
		},
		{
			Name:     "top level cursor",
			PostData: "doc_id=7&cursor=old&x=1",
			Cursor:   "a b",
			Want:     "doc_id=7&cursor=a+b&x=1",
		},
		{
			Name:     "escaped quotes",
			PostData: "variables=" + url.QueryEscape(`{"cursor":"a\"b","n":1}`),
			Cursor:   "c",
			Want:     "variables=" + url.QueryEscape(`{"cursor":"c","n":1}`),
		},
		{
			Name:     "browser encoding kept",
			PostData: "av=0&variables=%7B%22q%22%3A%22jazz%20berlin%20(live)*%22%2C%22cursor%22%3A%22AAA%22%7D&doc_id=7",
			Cursor:   "BBB",
			Want:     "av=0&variables=%7B%22q%22%3A%22jazz%20berlin%20(live)*%22%2C%22cursor%22%3A%22BBB%22%7D&doc_id=7",
		},
		{
			Name:     "browser encoding null cursor",
			PostData: "variables=%7B%22cursor%22%3Anull%2C%22scale%22%3A1%2C%22name%22%3A%22it's%20on!%22%7D",
			Cursor:   "c1",
			Want:     "variables=%7B%22cursor%22%3A%22c1%22%2C%22scale%22%3A1%2C%22name%22%3A%22it's%20on!%22%7D",
		},
		{
			Name:     "browser encoding inserted cursor",
			PostData: "variables=%7B%22q%22%3A%22a%20(b)%22%7D",
			Cursor:   "c1",
			Want:     "variables=%7B%22cursor%22%3A%22c1%22%2C%22q%22%3A%22a%20(b)%22%7D",
		},
		{
			Name:     "empty variables",
			PostData: "variables=%7B%7D",
			Cursor:   "c1",
			Want:     "variables=%7B%22cursor%22%3A%22c1%22%7D",
		},
		{
			Name:     "spaced cursor field",
			PostData: "variables=%7B%22cursor%22%20%3A%20%22old%22%7D",
			Cursor:   "new",
			Want:     "variables=%7B%22cursor%22%20%3A%20%22new%22%7D",
		},
		{
			Name:     "nothing to replace",
			PostData: "doc_id=7&fb_dtsg=abc",
			Cursor:   "c",
			Want:     "doc_id=7&fb_dtsg=abc",
		},
	} {
		tmpl := ReplayTemplate{PostData: test.PostData, Cookies: "c_user=1"}
		if err := tmpl.SetCursor(test.Cursor); err != nil {
			t.Fatalf("%s: %v", test.Name, err)
		}
		if tmpl.PostData != test.Want {
			t.Errorf("%s: got %q, want %q", test.Name, tmpl.PostData, test.Want)
		}
		if tmpl.Cookies != "c_user=1" {
			t.Errorf("%s: cookies changed to %q", test.Name, tmpl.Cookies)
		}
	}
}

func TestReplayTemplateSetCursorRepeated(t *testing.T) {
	t.Parallel()

	const captured = "variables=%7B%22q%22%3A%22a%20b%22%2C%22cursor%22%3Anull%7D&doc_id=7"

	tmpl := ReplayTemplate{PostData: captured}
	for _, cursor := range []string{"c1", "c2", "c3"} {
		if err := tmpl.SetCursor(cursor); err != nil {
			t.Fatal(err)
		}
	}

	want := "variables=%7B%22q%22%3A%22a%20b%22%2C%22cursor%22%3A%22c3%22%7D&doc_id=7"
	if tmpl.PostData != want {
		t.Errorf("got %q, want %q", tmpl.PostData, want)
	}
}

func TestReplayTemplateSetCursorBadEscape(t *testing.T) {
	t.Parallel()

	tmpl := ReplayTemplate{PostData: "variables=%7B%22cursor%22%3A%2"}
	if err := tmpl.SetCursor("c"); err == nil {
		t.Error("expected an error for a truncated escape")
	}
}
