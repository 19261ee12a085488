package client

import (
	"context"

	"github.com/findrandomevents/harvest"
)

// HarvestsClient provides access to the /harvests endpoint
type HarvestsClient struct {
	client *Client
}

// Run harvests the events reachable from req.Seeds on the server and returns
// the IDs of the events it stored. It needs admin credentials.
func (c *HarvestsClient) Run(ctx context.Context, req harvest.HarvestRequest) (harvest.HarvestResponse, error) {
	var resp harvest.HarvestResponse
	err := c.client.doJSON(ctx, "POST", "/harvests", req, &resp)
	return resp, err
}
