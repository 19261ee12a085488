package extract

import (
	"encoding/json"
	"testing"

	"github.com/go-test/deep"
)

const page = `<!DOCTYPE html>
<html><head>
<script>requireLazy(["x"], function(){})</script>
<script type="application/json" data-sjs>{"require":[["ScheduledServerJS",{"__bbox":{"result":{"data":{
	"event": {"id": "1", "is_online": false},
	"other": {"event" : {"id": "1", "name": "Jazz night", "is_past": false}},
	"upcoming_events": {"edges": [{"node": {"id": "10"}}], "page_info": {"has_next_page": true, "end_cursor": "abc"}}
}}}}]]}</script>
<script type="application/json">{"event":{"one_line_address":"1 Main St","id":"1"},"cover_media":[{"full_image":{"uri":"https://img"}}],"empty":null}</script>
</head><body><div data-x='"event":"not json'></div></body></html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	doc := Scanner{}.Parse([]byte(page))

	for _, test := range []struct {
		Key           string
		Disambiguator string
		Want          interface{}
	}{
		{"event", "", map[string]interface{}{"id": "1", "is_online": false}},
		{"event", "name", map[string]interface{}{"id": "1", "name": "Jazz night", "is_past": false}},
		{"event", "one_line_address", map[string]interface{}{"one_line_address": "1 Main St", "id": "1"}},
		{"upcoming_events", "", map[string]interface{}{
			"edges":     []interface{}{map[string]interface{}{"node": map[string]interface{}{"id": "10"}}},
			"page_info": map[string]interface{}{"has_next_page": true, "end_cursor": "abc"},
		}},
		{"cover_media", "", []interface{}{map[string]interface{}{"full_image": map[string]interface{}{"uri": "https://img"}}}},
	} {
		raw, ok := doc.Extract(test.Key, test.Disambiguator)
		if !ok {
			t.Errorf("Extract(%q, %q) missed", test.Key, test.Disambiguator)
			continue
		}
		var got interface{}
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatal(err)
		}
		if diff := deep.Equal(got, test.Want); diff != nil {
			t.Errorf("Extract(%q, %q): %v", test.Key, test.Disambiguator, diff)
		}
	}
}

func TestExtractMiss(t *testing.T) {
	t.Parallel()

	s := Scanner{}
	for _, test := range []struct {
		Key           string
		Disambiguator string
	}{
		{"missing", ""},
		{"empty", ""},
		{"event", "start_timestamp"},
	} {
		if v, ok := s.Extract([]byte(page), test.Key, test.Disambiguator); ok {
			t.Errorf("Extract(%q, %q) = %s, want miss", test.Key, test.Disambiguator, v)
		}
	}
}

func TestExtractBareJSON(t *testing.T) {
	t.Parallel()

	raw, ok := Scanner{}.Extract([]byte(`{"data":{"start_timestamp":1700000000}}`), "data", "start_timestamp")
	if !ok {
		t.Fatal("bare json missed")
	}
	if string(raw) != `{"start_timestamp":1700000000}` {
		t.Errorf("got %s", raw)
	}
}
