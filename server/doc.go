// Package server is the HTTP front end for the loader.
//
// Routes, all taking the raw container as the request body:
//
//	POST /v1/info       200 application/json metadata document
//	POST /v1/extract    200 application/octet-stream payload
//	POST /v1/run/:op    either of the above, by operation name
//	GET  /healthz
//
// Failures return a JSON envelope {"error": {"kind", "phase", "message",
// "request_id"}}. Container and metadata codec errors map to 422, unknown
// operations to 400 and oversized bodies to 413. Engine warnings during
// extract do not fail the request; they are reported in the
// X-Anyfile-Engine-Warning header. Every response carries X-Request-ID.
package server
