// Package tracesdk provides shared request/response types, the service error
// taxonomy, and a small HTTP client for the trace service. The server's HTTP
// layer uses the same APIError values it hands back to SDK callers, so both
// sides agree on codes and status mapping.
package tracesdk
