package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for harvester resources.
	uriScheme = "harvester://"

	historyLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "harvests",
		Name:        "harvests",
		Description: "Recent harvests, newest first",
		MIMEType:    "application/json",
	}, s.handleHarvestsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "harvests/{harvestId}",
		Name:        "harvest",
		Description: "A stored harvest with its fragments",
		MIMEType:    "application/json",
	}, s.handleHarvestResource)
}

// handleHarvestsResource lists recent harvests without their fragments.
func (s *Server) handleHarvestsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	results, err := s.ports.Harvest.History(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("listing harvests: %w", err)
	}

	type harvestInfo struct {
		SourceOutput
		Keyword string `json:"keyword"`
		URI     string `json:"uri"`
	}

	infos := make([]harvestInfo, len(results))
	for i, r := range results {
		infos[i] = harvestInfo{
			SourceOutput: summarise(r),
			Keyword:      r.Keyword,
			URI:          uriScheme + "harvests/" + r.ID,
		}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleHarvestResource returns one stored harvest.
func (s *Server) handleHarvestResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractHarvestID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	result, err := s.ports.Harvest.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting harvest: %w", err)
	}

	return jsonResource(req.Params.URI, result)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractHarvestID extracts the ID from harvester://harvests/{harvestId}.
func extractHarvestID(uri string) string {
	const prefix = uriScheme + "harvests/"

	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
