package harvest

import (
	"encoding/json"
	"fmt"
)

// SourceKind determines how a seed value is turned into a listing URL and how
// event IDs are projected out of that listing's payload.
type SourceKind string

// The source kinds understood by the harvester. The string values double as
// the keys of a JSON-encoded SeedSet.
const (
	EventIDKind     SourceKind = "eventID"
	GroupKind       SourceKind = "group"
	PageKind        SourceKind = "page"
	SearchQueryKind SourceKind = "search_query"
)

// Kinds lists every SourceKind in the order tasks are scheduled.
var Kinds = []SourceKind{EventIDKind, GroupKind, PageKind, SearchQueryKind}

// Paginated reports whether sources of this kind are listings that have to be
// paged through, as opposed to explicit event IDs.
func (k SourceKind) Paginated() bool {
	return k == GroupKind || k == PageKind || k == SearchQueryKind
}

// ParseSourceKind converts a string into a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// SourceSpec is one seed: an event ID, a group ID, a page ID or a search query.
type SourceSpec struct {
	Kind  SourceKind `json:"kind"`
	Value string     `json:"value"`
}

func (s SourceSpec) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Value)
}

// SeedSet groups seed sources by kind. Within a kind the insertion order is
// kept so that task scheduling is reproducible between runs.
type SeedSet map[SourceKind][]SourceSpec

// NewSeedSet builds a SeedSet from a list of sources.
func NewSeedSet(specs ...SourceSpec) SeedSet {
	seeds := SeedSet{}
	for _, spec := range specs {
		seeds.Add(spec.Kind, spec.Value)
	}
	return seeds
}

// Add appends a source value of the given kind.
func (s SeedSet) Add(kind SourceKind, values ...string) {
	for _, v := range values {
		s[kind] = append(s[kind], SourceSpec{Kind: kind, Value: v})
	}
}

// Specs flattens the set, kind by kind in the order given by Kinds.
func (s SeedSet) Specs() []SourceSpec {
	var specs []SourceSpec
	for _, k := range Kinds {
		specs = append(specs, s[k]...)
	}
	return specs
}

// Len returns the total number of sources in the set.
func (s SeedSet) Len() int {
	var n int
	for _, specs := range s {
		n += len(specs)
	}
	return n
}

// MarshalJSON encodes the set as {"eventID": ["1", ...], "group": [...]}.
func (s SeedSet) MarshalJSON() ([]byte, error) {
	m := make(map[SourceKind][]string, len(s))
	for k, specs := range s {
		for _, spec := range specs {
			m[k] = append(m[k], spec.Value)
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the format produced by MarshalJSON. Unknown kinds are
// rejected.
func (s *SeedSet) UnmarshalJSON(b []byte) error {
	var m map[string][]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	seeds := SeedSet{}
	for key, values := range m {
		kind, err := ParseSourceKind(key)
		if err != nil {
			return err
		}
		seeds.Add(kind, values...)
	}
	*s = seeds

	return nil
}
