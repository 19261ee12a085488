// Package extract locates JSON values embedded in page markup.
//
// Facebook pages ship their data as JSON blobs inside <script> tags. A value
// is found by its key name: the first `"key": <value>` whose value decodes
// cleanly (and, if a disambiguator is given, is an object holding that key)
// wins. Nothing about the surrounding structure is assumed, which keeps the
// lookups working across markup changes that move blobs around.
package extract

import (
	"bytes"
	"encoding/json"

	"github.com/PuerkitoBio/goquery"
)

// Extractor returns the first value stored under key in markup. When
// disambiguator is not empty, only object values that contain a
// disambiguator key match.
type Extractor interface {
	Extract(markup []byte, key, disambiguator string) (json.RawMessage, bool)
}

// Parser splits markup into a Document that can answer several lookups
// without re-parsing.
type Parser interface {
	Parse(markup []byte) Document
}

// Document is parsed markup.
type Document interface {
	Extract(key, disambiguator string) (json.RawMessage, bool)
}

// Scanner implements Extractor and Parser by scanning the text of every
// <script> element. Markup without script elements is scanned whole.
type Scanner struct{}

// Extract implements Extractor.
func (s Scanner) Extract(markup []byte, key, disambiguator string) (json.RawMessage, bool) {
	return s.Parse(markup).Extract(key, disambiguator)
}

// Parse implements Parser.
func (Scanner) Parse(markup []byte) Document {
	var doc scripts

	html, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err == nil {
		html.Find("script").Each(func(_ int, s *goquery.Selection) {
			if text := s.Text(); text != "" {
				doc = append(doc, []byte(text))
			}
		})
	}
	if len(doc) == 0 {
		doc = scripts{markup}
	}

	return doc
}

type scripts [][]byte

func (doc scripts) Extract(key, disambiguator string) (json.RawMessage, bool) {
	needle := []byte(`"` + key + `"`)
	for _, text := range doc {
		if v, ok := find(text, needle, disambiguator); ok {
			return v, true
		}
	}
	return nil, false
}

func find(text, needle []byte, disambiguator string) (json.RawMessage, bool) {
	for off := 0; off < len(text); {
		i := bytes.Index(text[off:], needle)
		if i < 0 {
			return nil, false
		}
		pos := off + i + len(needle)
		off = pos

		pos = skipSpace(text, pos)
		if pos >= len(text) || text[pos] != ':' {
			continue
		}
		pos = skipSpace(text, pos+1)

		var v json.RawMessage
		if err := json.NewDecoder(bytes.NewReader(text[pos:])).Decode(&v); err != nil {
			continue
		}
		if bytes.Equal(v, []byte("null")) {
			continue
		}
		if disambiguator != "" && !hasKey(v, disambiguator) {
			continue
		}
		return v, true
	}
	return nil, false
}

func hasKey(v json.RawMessage, key string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err != nil {
		return false
	}
	_, ok := obj[key]
	return ok
}

func skipSpace(b []byte, i int) int {
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return i
}
