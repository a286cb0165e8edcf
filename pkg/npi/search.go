package npi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

// ByNumber implements Client.
func (c *client) ByNumber(ctx context.Context, number string) (*SearchResponse, error) {
	params := url.Values{
		"number":  {number},
		"version": {apiVersion},
	}
	return c.search(ctx, params)
}

// ByName implements Client.
func (c *client) ByName(ctx context.Context, firstName, lastName, state string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"first_name": {firstName},
		"last_name":  {lastName},
		"state":      {state},
		"version":    {apiVersion},
		"limit":      {strconv.Itoa(limit)},
	}
	return c.search(ctx, params)
}

func (c *client) search(ctx context.Context, params url.Values) (*SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "npi: rate limit")
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "npi: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "npi: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("npi: registry returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "npi: read body")
	}

	var sr SearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "npi: parse response")
	}
	return &sr, nil
}
