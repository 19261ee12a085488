// Package fetch provides the retrying HTTP client shared by the static page
// reader, the replay loop and the detail fetcher.
//
// A request is attempted up to Retries times with a fixed RetryDelay between
// attempts. Each attempt gets its own Timeout. Failures are assumed to be
// transient rate limiting, so there is no exponential growth and no jitter.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/log"
	"github.com/findrandomevents/harvest/prom"
)

// maxBodyBytes caps a response body. Event pages are a few megabytes.
const maxBodyBytes = 32 << 20

// Client issues HTTP requests with fixed-count, fixed-delay retries.
//
// Use New to build a Client from harvest.Options.
type Client struct {
	HTTP *http.Client

	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration

	// Limiter, if set, paces every attempt.
	Limiter *rate.Limiter

	// NewTimer overrides the timer used to wait between attempts. Tests use
	// it to observe retry delays without sleeping.
	NewTimer func() backoff.Timer
}

// New builds a Client configured by opts.
func New(opts harvest.Options) *Client {
	c := &Client{
		HTTP:       &http.Client{},
		Retries:    opts.HTTPReqRetries,
		RetryDelay: opts.HTTPReqRetryDelay,
		Timeout:    opts.HTTPReqTimeout,
	}
	if opts.HTTPReqRate > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(opts.HTTPReqRate), 1)
	}
	return c
}

// Get fetches url and returns the response body.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, "", header)
}

// Post sends body to url and returns the response body.
func (c *Client) Post(ctx context.Context, url string, body string, header http.Header) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, body, header)
}

// do runs the retry loop. When every attempt fails the returned error has
// Kind errors.FetchFailed and the body is nil; callers treat that as "no data
// for this request" and carry on.
func (c *Client) do(ctx context.Context, method, url, body string, header http.Header) ([]byte, error) {
	const op errors.Op = "Client.Fetch"
	logger := log.FromContext(ctx)

	retries := c.Retries
	if retries < 1 {
		retries = 1
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		return c.attempt(ctx, method, url, body, header)
	}
	notify := func(err error, next time.Duration) {
		prom.FetchAttempts.WithLabelValues(method, prom.OutcomeRetry).Inc()
		logger.Debug("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", next),
			zap.Error(err))
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.RetryDelay), uint64(retries-1)),
		ctx,
	)
	var timer backoff.Timer
	if c.NewTimer != nil {
		timer = c.NewTimer()
	}

	resp, err := backoff.RetryNotifyWithTimerAndData(operation, b, notify, timer)
	if err != nil {
		prom.FetchAttempts.WithLabelValues(method, prom.OutcomeFail).Inc()
		logger.Error("fetch failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return nil, errors.E(op, errors.URL(url), errors.FetchFailed, err)
	}

	prom.FetchAttempts.WithLabelValues(method, prom.OutcomeOK).Inc()
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, method, url, body string, header http.Header) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if method != http.MethodGet {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
