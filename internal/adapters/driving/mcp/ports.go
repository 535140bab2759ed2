package mcp

import (
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Harvest runs harvests and serves their history.
	Harvest driving.HarvestService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Harvest == nil {
		return ErrMissingHarvestService
	}
	return nil
}
