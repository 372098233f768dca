package mender

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// apiVersion identifies which API generation answered a dual-version request.
type apiVersion int

const (
	apiV1 apiVersion = 1
	apiV2 apiVersion = 2
)

// dualVersionRequest names the two path variants of one logical operation
// that exists in both API generations.
type dualVersionRequest struct {
	v2Path string
	v1Path string
	params url.Values
}

// requestDualVersion issues the v2 request and escalates to v1 only when v2
// reports the resource absent. Auth, permission and server errors propagate
// immediately without a second request.
func (c *Client) requestDualVersion(ctx context.Context, r dualVersionRequest) (payload, apiVersion, error) {
	p, err := c.doRequest(ctx, http.MethodGet, r.v2Path, r.params)
	if err == nil {
		return p, apiV2, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
		return payload{}, 0, err
	}

	p, err = c.doRequest(ctx, http.MethodGet, r.v1Path, r.params)
	if err != nil {
		return payload{}, 0, err
	}
	return p, apiV1, nil
}

// fetchDualVersion is the shared strategy behind every dual-version read:
// v2 first, v1 on not-found, each response decoded through its own
// normalizer, with an optional client-side scan as the last resort when
// both versions report the resource absent.
func fetchDualVersion[T any](ctx context.Context, c *Client, r dualVersionRequest,
	fromV1, fromV2 func(payload) (T, error), scan func(context.Context) (T, error)) (T, error) {

	var zero T
	p, version, err := c.requestDualVersion(ctx, r)
	if err != nil {
		var apiErr *APIError
		if scan != nil && errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return scan(ctx)
		}
		return zero, err
	}

	if version == apiV1 {
		return fromV1(p)
	}
	return fromV2(p)
}
