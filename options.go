package harvest

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultBaseURL is the origin all listing, detail and data-fetch URLs are
// built against.
const DefaultBaseURL = "https://www.facebook.com"

// Options configures a harvest run.
type Options struct {
	// Concurrency bounds the source pool and every detail-fetch batch.
	Concurrency int `json:"concurrency"`
	// Derestrict dispatches replayed pages without waiting for the previous
	// page's detail fetches to finish.
	Derestrict bool `json:"derestrict"`

	// HTTPReqRetryDelay and HTTPReqTimeout are written as milliseconds in
	// JSON.
	HTTPReqRetries    int           `json:"httpReqRetries"`
	HTTPReqRetryDelay time.Duration `json:"-"`
	HTTPReqTimeout    time.Duration `json:"-"`
	// HTTPReqRate caps outgoing requests per second. Zero disables pacing.
	HTTPReqRate float64 `json:"httpReqRate"`

	// IsAWS marks a constrained host where only one browser may run at a
	// time. When false, BrowserConcurrency browsers may run in parallel.
	IsAWS              bool `json:"isAWS"`
	BrowserConcurrency int  `json:"browserConcurrency"`
	// ChromePath is the browser binary used for captures. Empty means
	// the first Chrome found on the PATH.
	ChromePath string `json:"chromePath,omitempty"`

	// OutputFile, if set, receives the harvested events as indented JSON.
	OutputFile string `json:"outputFile,omitempty"`

	BaseURL   string `json:"baseURL"`
	UserAgent string `json:"userAgent"`
}

// DefaultOptions returns the options used when the caller sets nothing.
func DefaultOptions() Options {
	return Options{
		Concurrency:        10,
		Derestrict:         false,
		HTTPReqRetries:     5,
		HTTPReqRetryDelay:  1000 * time.Millisecond,
		HTTPReqTimeout:     5000 * time.Millisecond,
		IsAWS:              true,
		BrowserConcurrency: 10,
		BaseURL:            DefaultBaseURL,
		UserAgent:          "Mozilla/5.0",
	}
}

// BrowserPoolSize is the number of browser sessions allowed at once.
func (o Options) BrowserPoolSize() int {
	if o.IsAWS || o.BrowserConcurrency < 1 {
		return 1
	}
	return o.BrowserConcurrency
}

// Validate checks that the options can drive a run.
func (o Options) Validate() error {
	if o.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", o.Concurrency)
	}
	if o.HTTPReqRetries < 1 {
		return fmt.Errorf("httpReqRetries must be at least 1, got %d", o.HTTPReqRetries)
	}
	if o.HTTPReqRetryDelay < 0 || o.HTTPReqTimeout < 0 || o.HTTPReqRate < 0 {
		return fmt.Errorf("delays, timeouts and rates must not be negative")
	}
	if o.BaseURL == "" {
		return fmt.Errorf("missing base url")
	}
	return nil
}

// optionsJSON is Options with its durations in milliseconds.
type optionsJSON struct {
	jsonOptions
	HTTPReqRetryDelay int64 `json:"httpReqRetryDelay"`
	HTTPReqTimeout    int64 `json:"httpReqTimeout"`
}

// jsonOptions drops the methods of Options so that encoding it does not
// recurse.
type jsonOptions Options

// MarshalJSON implements json.Marshaler.
func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionsJSON{
		jsonOptions:       jsonOptions(o),
		HTTPReqRetryDelay: o.HTTPReqRetryDelay.Milliseconds(),
		HTTPReqTimeout:    o.HTTPReqTimeout.Milliseconds(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Fields missing from b keep
// their current values, so decoding into DefaultOptions() overrides only
// what b sets.
func (o *Options) UnmarshalJSON(b []byte) error {
	v := optionsJSON{
		jsonOptions:       jsonOptions(*o),
		HTTPReqRetryDelay: o.HTTPReqRetryDelay.Milliseconds(),
		HTTPReqTimeout:    o.HTTPReqTimeout.Milliseconds(),
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Options(v.jsonOptions)
	o.HTTPReqRetryDelay = time.Duration(v.HTTPReqRetryDelay) * time.Millisecond
	o.HTTPReqTimeout = time.Duration(v.HTTPReqTimeout) * time.Millisecond
	return nil
}
