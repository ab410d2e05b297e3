// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package activation carries out the agent's one-time, two-step
// bootstrap against the cloud activation endpoint: the first step
// trades a node ID for a fresh access key, the second confirms that
// key is in use. Both steps are retried with bounded exponential
// backoff, since this call happens once per device over an
// unattended, possibly flaky, network link.
package activation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/jpillora/backoff"
)

const requestTimeout = 60 * time.Second

// Client talks to the activation endpoint for a single node.
type Client struct {
	httpClient http.Client
	apiRoot    string
}

// NewClient builds a Client against apiRoot, e.g.
// "https://edge.ammp.io/api/v0".
func NewClient(apiRoot string) *Client {
	return &Client{
		apiRoot:    apiRoot,
		httpClient: http.Client{Timeout: requestTimeout},
	}
}

type step1Response struct {
	AccessKey string `json:"access_key"`
	Message   string `json:"message"`
}

type step2Response struct {
	Message string `json:"message"`
}

// Activate runs both activation steps for nodeID and returns the
// access key issued by step one. Each step retries with bounded
// exponential backoff on any transport or non-2xx failure; it gives up
// and returns an error once the backoff is exhausted.
func (c *Client) Activate(ctx context.Context, nodeID string) (string, error) {
	url := fmt.Sprintf("%s/nodes/%s/activate", c.apiRoot, nodeID)

	resp1, err := retryRequest(ctx, func() (*step1Response, error) {
		return c.step1(ctx, url)
	})
	if err != nil {
		return "", fmt.Errorf("activation: step 1 for node %q: %w", nodeID, err)
	}
	log.Debugf("activation: step 1 complete for node %q: %s", nodeID, resp1.Message)

	resp2, err := retryRequest(ctx, func() (*step2Response, error) {
		return c.step2(ctx, url, resp1.AccessKey)
	})
	if err != nil {
		return "", fmt.Errorf("activation: step 2 for node %q: %w", nodeID, err)
	}
	log.Debugf("activation: step 2 complete for node %q: %s", nodeID, resp2.Message)

	return resp1.AccessKey, nil
}

func (c *Client) step1(ctx context.Context, url string) (*step1Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var out step1Response
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) step2(ctx context.Context, url, accessKey string) (*step2Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", accessKey)
	var out step2Response
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%s: HTTP status %s", req.URL, res.Status)
	}

	if err := json.NewDecoder(bufio.NewReader(res.Body)).Decode(out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// retryRequest retries fn with bounded exponential backoff until it
// succeeds, the context is canceled, or maxAttempts attempts have
// failed.
func retryRequest[T any](ctx context.Context, fn func() (*T, error)) (*T, error) {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	const maxAttempts = 8
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		d := b.Duration()
		log.Warnf("activation: request failed, retrying in %s: %v", d, err)

		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("exhausted %d attempts: %w", maxAttempts, lastErr)
}
