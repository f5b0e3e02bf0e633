// Package httpapi serves the worker commands over HTTP for the web UI.
//
// The surface is disabled unless paths.api_bind is set. When paths.api_token
// is set every request must carry it as a bearer token.
package httpapi
