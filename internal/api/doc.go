// Package api exposes the HTTP surface of the service: health and readiness
// probes, Prometheus metrics, and the versioned analysis endpoints.
package api
