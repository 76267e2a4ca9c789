// Package mcptools exposes the grievance engine as MCP tools, so an
// assistant can file grievances on behalf of a user and look them up.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const maxSearchResults = 20

// Tools binds the MCP handlers to a complaint service.
type Tools struct {
	Service *complaint.Service
}

func New(svc *complaint.Service) *Tools {
	return &Tools{Service: svc}
}

// NewServer creates an MCP server with every grievance tool registered.
func (t *Tools) NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"incluverse-grievances",
		version,
		server.WithToolCapabilities(false),
	)
	t.Register(s)
	return s
}

// Register adds the tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	languages := make([]string, 0, len(models.Languages))
	for l := range models.Languages {
		languages = append(languages, string(l))
	}
	statuses := []string{models.StatusAll}
	for _, st := range models.Statuses {
		statuses = append(statuses, string(st))
	}

	s.AddTool(mcp.NewTool("file_grievance",
		mcp.WithDescription("File an accessibility grievance. It is stored locally and submitted to the authority when online."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The grievance in the user's own words"),
		),
		mcp.WithString("language",
			mcp.Description("BCP-47 tag of the language the grievance is written in"),
			mcp.Enum(languages...),
		),
	), t.FileGrievance)

	s.AddTool(mcp.NewTool("search_grievances",
		mcp.WithDescription("Search grievances by text or category, optionally filtered by status."),
		mcp.WithString("term",
			mcp.Description("Case-insensitive text to look for; empty matches everything"),
		),
		mcp.WithString("status",
			mcp.Description("Status filter"),
			mcp.Enum(statuses...),
		),
	), t.SearchGrievances)

	s.AddTool(mcp.NewTool("grievance_stats",
		mcp.WithDescription("Summary of all grievances: totals per status, pending sync and average rating."),
	), t.GrievanceStats)
}

func (t *Tools) FileGrievance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}
	lang, ok := models.ParseLanguage(request.GetString("language", ""))
	if !ok {
		return mcp.NewToolResultError("unsupported language"), nil
	}

	c, err := t.Service.Submit(ctx, text, lang)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(c)
}

func (t *Tools) SearchGrievances(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := request.GetString("status", models.StatusAll)
	if status != models.StatusAll {
		if _, ok := models.ParseStatus(status); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", status)), nil
		}
	}

	results := make([]models.Complaint, 0)
	for c := range t.Service.Search(request.GetString("term", ""), status) {
		results = append(results, c)
		if len(results) == maxSearchResults {
			break
		}
	}
	return jsonResult(results)
}

func (t *Tools) GrievanceStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.Service.Stats())
}

// toolError reports caller mistakes as tool errors and everything else as a
// protocol-level failure.
func toolError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, complaint.ErrValidation) || errors.Is(err, complaint.ErrNotFound) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
