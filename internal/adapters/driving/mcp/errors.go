// Package mcp exposes the harvester over the Model Context Protocol so AI
// assistants can collect code search fragments and browse harvest history.
package mcp

import "errors"

// ErrMissingHarvestService is returned when the harvest service is not provided.
var ErrMissingHarvestService = errors.New("mcp: harvest service is required")
