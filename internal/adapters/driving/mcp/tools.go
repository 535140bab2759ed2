package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// DefaultLimit is used when a tool call gives no limit.
const DefaultLimit = 100

// HarvestInput is the input schema for the harvest_code tool.
type HarvestInput struct {
	Keyword string `json:"keyword" jsonschema:"the code search keyword, GitHub qualifiers allowed"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of fragments to collect (default 100)"`
}

// HarvestOutput is the output schema for the harvest_code tool.
type HarvestOutput struct {
	Keyword   string         `json:"keyword"`
	Fragments []string       `json:"fragments"`
	Count     int            `json:"count"`
	Sources   []SourceOutput `json:"sources"`
}

// SourceOutput summarises one source's part of a harvest.
type SourceOutput struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Status    string `json:"status"`
	Fragments int    `json:"fragments"`
	Pages     int    `json:"pages"`
	Error     string `json:"error,omitempty"`
}

// HistoryInput is the input schema for the list_harvests tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of harvests to list (default 20)"`
}

// HistoryOutput is the output schema for the list_harvests tool.
type HistoryOutput struct {
	Harvests []SourceOutput `json:"harvests"`
	Count    int            `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "harvest_code",
		Description: "Collect code fragments matching a keyword from GitHub code search",
	}, s.handleHarvest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_harvests",
		Description: "List recent harvests, newest first",
	}, s.handleHistory)
}

// handleHarvest handles the harvest_code tool invocation.
// Source failures are reported in the output; only start errors fail the call.
func (s *Server) handleHarvest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HarvestInput,
) (*mcp.CallToolResult, HarvestOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	agg, err := s.ports.Harvest.Harvest(ctx, input.Keyword, limit)
	if agg == nil || (err != nil && len(agg.Fragments()) == 0) {
		return nil, HarvestOutput{}, err
	}

	fragments := agg.Fragments()
	if fragments == nil {
		fragments = []string{}
	}
	output := HarvestOutput{
		Keyword:   agg.Keyword,
		Fragments: fragments,
		Count:     len(fragments),
		Sources:   make([]SourceOutput, 0, len(agg.Results)),
	}
	for _, r := range agg.Results {
		output.Sources = append(output.Sources, summarise(r))
	}
	return nil, output, nil
}

// handleHistory handles the list_harvests tool invocation.
func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	results, err := s.ports.Harvest.History(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	output := HistoryOutput{
		Harvests: make([]SourceOutput, 0, len(results)),
		Count:    len(results),
	}
	for _, r := range results {
		output.Harvests = append(output.Harvests, summarise(r))
	}
	return nil, output, nil
}

func summarise(r *domain.HarvestResult) SourceOutput {
	return SourceOutput{
		ID:        r.ID,
		Source:    r.Source,
		Status:    string(r.Status),
		Fragments: len(r.Fragments),
		Pages:     r.Pages,
		Error:     r.Err,
	}
}
