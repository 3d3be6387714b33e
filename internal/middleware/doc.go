// Package middleware provides HTTP middleware for the catalog server:
// request logging in W3C Extended Log Format and Prometheus request
// metrics, with configurable filtering for health check endpoints.
package middleware
