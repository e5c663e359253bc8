// Package observe provides the telemetry used by the token gate: an
// OpenTelemetry observer, a JSON logger that redacts credentials, auth
// outcome metrics, and an HTTP middleware that traces and times requests.
//
// Nothing here makes access decisions; the auth package reports into these
// sinks and the server wires them together.
package observe
