// Package mender provides a read-only client for the Mender device
// management API, authenticated with a Personal Access Token.
//
// # Architecture
//
//   - Client: the HTTPS client with one request-execution primitive that
//     classifies every failure through the error taxonomy
//   - Types: canonical value records (devices, deployments, releases,
//     inventory, logs, audit entries) materialized fresh per call
//   - Fallback: the shared v2-then-v1 escalation used by every operation
//     that exists in two API generations
//   - Decode: discriminated response decoding for JSON, plain-text and
//     binary bodies
//
// # Version fallback
//
// Release lookup/listing and deployment-log retrieval exist in two upstream
// API generations with different paths and payload shapes. The client always
// asks v2 first and retries v1 only when v2 reports the resource absent
// (HTTP 404); any other failure propagates immediately. Responses are
// normalized through ReleaseFromV1 / ReleaseFromV2 so callers only ever see
// the canonical record shape.
//
// # Error handling
//
// Every failure surfaces as *APIError with a sanitized, display-safe
// message. Transport failures carry no status code; upstream failures keep
// the original status code for programmatic branching:
//
//	device, err := client.GetDevice(ctx, id)
//	if err != nil {
//		var apiErr *mender.APIError
//		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
//			// handle missing device
//		}
//	}
//
// Raw response bodies, request URLs and credentials never appear in
// returned messages; they reach the debug log only through the
// sanitization pipeline in the security package.
package mender
