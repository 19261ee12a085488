package client

import (
	"context"
	"net/url"

	"github.com/findrandomevents/harvest"
)

// EventsClient provides access to the /events endpoint
type EventsClient struct {
	client *Client
}

// Get fetches one stored event.
func (c *EventsClient) Get(ctx context.Context, id harvest.EventID) (harvest.EventRecord, error) {
	var resp harvest.EventRecord
	err := c.client.doJSON(ctx, "GET", "/events/"+url.PathEscape(string(id)), nil, &resp)
	return resp, err
}

// Search lists stored events matching the EventSearchRequest.
func (c *EventsClient) Search(ctx context.Context, req harvest.EventSearchRequest) ([]harvest.EventRecord, error) {
	var resp []harvest.EventRecord
	if err := c.client.doJSON(ctx, "POST", "/events/search", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}
