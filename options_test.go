package harvest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-test/deep"
)

func TestOptionsJSONMilliseconds(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"httpReqRetryDelay":1000`, `"httpReqTimeout":5000`, `"concurrency":10`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("%s missing from %s", want, b)
		}
	}

	opts := DefaultOptions()
	if err := json.Unmarshal([]byte(`{"httpReqRetryDelay":250,"httpReqTimeout":2000,"derestrict":true}`), &opts); err != nil {
		t.Fatal(err)
	}

	want := DefaultOptions()
	want.HTTPReqRetryDelay = 250 * time.Millisecond
	want.HTTPReqTimeout = 2 * time.Second
	want.Derestrict = true
	if diff := deep.Equal(opts, want); diff != nil {
		t.Error(diff)
	}
}

func TestOptionsJSONKeepsUnsetDurations(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if err := json.Unmarshal([]byte(`{"concurrency":3}`), &opts); err != nil {
		t.Fatal(err)
	}
	if opts.Concurrency != 3 {
		t.Errorf("concurrency = %d, want 3", opts.Concurrency)
	}
	if opts.HTTPReqRetryDelay != time.Second || opts.HTTPReqTimeout != 5*time.Second {
		t.Errorf("durations changed: %v, %v", opts.HTTPReqRetryDelay, opts.HTTPReqTimeout)
	}
}
