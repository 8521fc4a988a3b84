// Package server hosts the HTTP front end: it builds the per-request API
// context, runs the dispatcher, and wraps the whole surface in request-id,
// logging, metrics, security-header, CORS, and rate-limit middleware.
package server
