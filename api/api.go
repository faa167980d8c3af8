// Package api holds the published contracts of the service: the OpenAPI document of the
// HTTP API and the JSON Schemas of the CloudEvent payloads it emits.
package api

import "embed"

// OpenAPI is the OpenAPI 3 document of the HTTP API
//
//go:embed openapi.yaml
var OpenAPI []byte

// EventSchemas holds one JSON Schema per event type under schemas/, titled with the type
//
//go:embed schemas/*.json
var EventSchemas embed.FS
