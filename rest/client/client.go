// Package client is a Go client for the harvester's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/findrandomevents/harvest/errors"
)

// Client provides a client to the harvester's REST API.
//
// Don't construct a Client directly. Use New() instead.
type Client struct {
	// HTTP is the underlying HTTP client used send requests.
	HTTP *http.Client
	// BaseURL is the HTTP endpoint for the REST API. Can be overridden for tests.
	// It defaults to http://localhost:8080
	BaseURL string
	// JWT is the user credential used to authenticate with the API.
	//
	// We're using Firebase auth, so this must be retrieved from the Firebase API.
	JWT string

	Events   *EventsClient
	Harvests *HarvestsClient
}

// New constructs a new Client
func New(jwt string) *Client {
	client := &Client{
		HTTP:    http.DefaultClient,
		BaseURL: "http://localhost:8080",
		JWT:     jwt,
	}

	client.Events = &EventsClient{client}
	client.Harvests = &HarvestsClient{client}

	return client
}

func (c Client) doJSON(ctx context.Context, method, path string, req interface{}, resp interface{}) error {
	var reqBody io.Reader
	if req != nil {
		reqJS, err := json.Marshal(req)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(reqJS)
	}

	r, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}

	if c.JWT != "" {
		r.Header.Set("Authorization", "Bearer "+c.JWT)
	}

	w, err := c.HTTP.Do(r)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if status := w.StatusCode; status != http.StatusOK {
		var resp errors.Response
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			return err
		}
		return resp.ToError()
	}

	if resp != nil {
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			return err
		}
	}

	return nil
}
