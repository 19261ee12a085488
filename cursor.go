package harvest

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// PageCursor marks where the next page of a listing resumes.
type PageCursor struct {
	EndCursor   string `json:"end_cursor"`
	HasNextPage bool   `json:"has_next_page"`
}

// ReplayTemplate is a data-fetch request captured from a live browser
// session. PostData is the form-encoded body exactly as the browser sent it
// and Cookies is the session's cookie jar serialized as a Cookie header.
type ReplayTemplate struct {
	PostData string `json:"post_data"`
	Cookies  string `json:"cookies"`
}

// cursorParam is the name of the continuation field, both as a top-level
// form parameter and inside the JSON "variables" parameter.
const cursorParam = "cursor"

var cursorField = regexp.MustCompile(`"cursor"\s*:\s*(null|"(?:[^"\\]|\\.)*")`)

// SetCursor replaces the continuation cursor in PostData with cursor. Every
// other byte of the payload is kept as captured: the form is never
// re-encoded, only the bytes spelling the old cursor value are swapped for
// the new one. When "variables" has no cursor yet, the field is inserted
// right after its opening brace.
func (t *ReplayTemplate) SetCursor(cursor string) error {
	quoted, err := json.Marshal(cursor)
	if err != nil {
		return err
	}

	pairs := strings.Split(t.PostData, "&")
	for i, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		switch key {
		case cursorParam:
			pairs[i] = key + "=" + url.QueryEscape(cursor)

		case "variables":
			value, err := spliceCursor(value, string(quoted))
			if err != nil {
				return err
			}
			pairs[i] = key + "=" + value
		}
	}
	t.PostData = strings.Join(pairs, "&")

	return nil
}

// spliceCursor sets the cursor field of the form-encoded JSON object raw to
// the JSON string quoted.
func spliceCursor(raw, quoted string) (string, error) {
	vars, offsets, err := unescapeOffsets(raw)
	if err != nil {
		return "", err
	}

	if m := cursorField.FindStringSubmatchIndex(vars); m != nil {
		from, to := offsets[m[2]], offsets[m[3]]
		return raw[:from] + url.QueryEscape(quoted) + raw[to:], nil
	}

	trimmed := strings.TrimSpace(vars)
	if !strings.HasPrefix(trimmed, "{") {
		return raw, nil
	}
	field := `"cursor":` + quoted
	if rest := strings.TrimSpace(trimmed[1:]); rest != "}" {
		field += ","
	}
	brace := offsets[strings.Index(vars, "{")+1]
	return raw[:brace] + url.QueryEscape(field) + raw[brace:], nil
}

// unescapeOffsets decodes a form-encoded value and reports, for every
// decoded byte, where it starts in raw. offsets has one extra entry,
// len(raw), so that a decoded span [i, j) maps to raw[offsets[i]:offsets[j]].
func unescapeOffsets(raw string) (string, []int, error) {
	var (
		b       strings.Builder
		offsets = make([]int, 0, len(raw)+1)
	)
	for i := 0; i < len(raw); {
		offsets = append(offsets, i)
		switch c := raw[i]; c {
		case '%':
			if i+2 >= len(raw) || !isHex(raw[i+1]) || !isHex(raw[i+2]) {
				return "", nil, url.EscapeError(raw[i:min(i+3, len(raw))])
			}
			b.WriteByte(unhex(raw[i+1])<<4 | unhex(raw[i+2]))
			i += 3
		case '+':
			b.WriteByte(' ')
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	offsets = append(offsets, len(raw))
	return b.String(), offsets, nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
