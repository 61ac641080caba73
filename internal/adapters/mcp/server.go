// Package mcp exposes the analysis use cases as MCP tools over streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
)

const (
	serverName    = "contract-clause-checker"
	serverVersion = "1.0.0"
	endpointPath  = "/mcp"

	defaultTextFilename = "contract.txt"
)

type Server struct {
	analyzer ports.ContractAnalyzer
	analyses ports.AnalysisManager
	mcp      *server.MCPServer
}

func NewServer(analyzer ports.ContractAnalyzer, analyses ports.AnalysisManager) *Server {
	s := &Server{
		analyzer: analyzer,
		analyses: analyses,
		mcp:      server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("analyze_contract_text",
		mcp.WithDescription("Analyze contract text for risky clauses and store the resulting analysis."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Plain contract text.")),
		mcp.WithString("filename", mcp.Description("Name recorded with the analysis.")),
	), s.analyzeContractText)

	s.mcp.AddTool(mcp.NewTool("list_analyses",
		mcp.WithDescription("List stored analyses, newest first."),
	), s.listAnalyses)

	s.mcp.AddTool(mcp.NewTool("get_analysis",
		mcp.WithDescription("Fetch one stored analysis with all findings."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Analysis id.")),
	), s.getAnalysis)

	s.mcp.AddTool(mcp.NewTool("delete_analysis",
		mcp.WithDescription("Delete a stored analysis."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Analysis id.")),
	), s.deleteAnalysis)

	return s
}

// Handler serves the streamable HTTP transport at /mcp.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	)
}

func (s *Server) analyzeContractText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := strings.TrimSpace(req.GetString("filename", ""))
	if filename == "" {
		filename = defaultTextFilename
	}

	analysis, err := s.analyzer.Analyze(ctx, filename, text)
	if err != nil {
		return toolError("analyze_contract_text", err), nil
	}
	return jsonResult(analysis)
}

type analysisSummary struct {
	ID          string             `json:"id"`
	Filename    string             `json:"filename"`
	ProcessedAt string             `json:"processed_at"`
	Findings    int                `json:"findings"`
	Risk        domain.RiskSummary `json:"risk"`
}

func (s *Server) listAnalyses(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.analyses.List(ctx)
	if err != nil {
		return toolError("list_analyses", err), nil
	}
	out := make([]analysisSummary, 0, len(items))
	for _, item := range items {
		out = append(out, analysisSummary{
			ID:          item.ID,
			Filename:    item.Filename,
			ProcessedAt: item.ProcessedAt.UTC().Format(time.RFC3339),
			Findings:    len(item.AnalysisResults),
			Risk:        item.RiskSummary(),
		})
	}
	return jsonResult(out)
}

func (s *Server) getAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	analysis, err := s.analyses.GetByID(ctx, id)
	if err != nil {
		return toolError("get_analysis", err), nil
	}
	return jsonResult(analysis)
}

func (s *Server) deleteAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.analyses.Delete(ctx, id); err != nil {
		return toolError("delete_analysis", err), nil
	}
	return mcp.NewToolResultText("Analysis deleted successfully"), nil
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports failures in the tool result so the client model can react.
func toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrAnalysisNotFound):
		return mcp.NewToolResultError("analysis not found")
	case domain.IsKind(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	case domain.IsKind(err, domain.ErrTemporary):
		slog.Warn("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("analysis service unavailable")
	default:
		slog.Error("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("internal error")
	}
}
