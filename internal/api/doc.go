// Package api defines the wire types shared by the HTTP API, the IPC server,
// and the CLI. Converters translate queue records and workflow summaries
// into JSON-friendly DTOs with camelCase field names and RFC3339 timestamps,
// and ErrorStatus maps domain errors onto HTTP status codes.
package api
