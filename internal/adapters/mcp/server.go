package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hukumnesia/lexqa/internal/core/domain"
	"github.com/hukumnesia/lexqa/internal/core/ports"
)

// NewServer builds the MCP stdio server exposing legal question answering
// and raw retrieval as tools for agent clients.
func NewServer(version string, querySvc ports.LegalQueryService, retrievalSvc ports.RetrievalService) *server.MCPServer {
	s := server.NewMCPServer(
		"lexqa",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(newLegalQueryTool(), handleLegalQuery(querySvc))
	s.AddTool(newLegalSearchTool(), handleLegalSearch(retrievalSvc))
	return s
}

// ServeStdio blocks until the stdio transport is closed.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func newLegalQueryTool() mcp.Tool {
	return mcp.NewTool("legal_query",
		mcp.WithDescription("Answer a question about Indonesian laws and regulations, grounded in retrieved statute passages with numbered citations"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The legal question, in Indonesian or English"),
		),
		mcp.WithString("document_type",
			mcp.Description("Restrict retrieval to one regulation type, e.g. UU, PP, Perpres, Permen"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of passages to ground the answer on (default 5)"),
		),
	)
}

func newLegalSearchTool() mcp.Tool {
	return mcp.NewTool("legal_search",
		mcp.WithDescription("Retrieve the most relevant regulation passages for a query without generating an answer"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("document_type",
			mcp.Description("Restrict retrieval to one regulation type"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of passages to return (default 5)"),
		),
	)
}

func handleLegalQuery(querySvc ports.LegalQueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question parameter is required"), nil
		}

		resp, err := querySvc.Query(ctx, domain.QueryRequest{
			Question:           question,
			FilterDocumentType: request.GetString("document_type", ""),
			TopK:               request.GetInt("top_k", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatQueryResponse(resp)), nil
	}
}

func handleLegalSearch(retrievalSvc ports.RetrievalService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		results, err := retrievalSvc.Search(ctx, query, request.GetInt("top_k", 0), domain.SearchFilter{
			DocumentType: request.GetString("document_type", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

func formatQueryResponse(resp *domain.QueryResponse) string {
	var b strings.Builder
	b.WriteString(resp.Answer)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Confidence: %s\n", resp.Confidence)
	if len(resp.Citations) > 0 {
		b.WriteString("Sources:\n")
		for _, citation := range resp.Citations {
			fmt.Fprintf(&b, "[%d] %s\n", citation.Number, citation.Citation)
		}
	}
	return b.String()
}

func formatSearchResults(query string, results []domain.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No regulation passages found for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d passages for %q:\n\n", len(results), query)
	for i, result := range results {
		fmt.Fprintf(&b, "[%d] %s (score %.4f)\n%s\n\n", i+1, result.Citation, result.Score, result.Text)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
