package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

const (
	ToolSearchDocs     = "search_docs"
	ToolClassifyTicket = "classify_ticket"
	ToolRespond        = "respond"
)

// Server exposes retrieval, classification and the support desk as MCP
// tools.
type Server struct {
	retrieval  ports.RetrievalService
	classifier ports.TicketClassifier
	support    ports.SupportDesk
}

func NewServer(retrieval ports.RetrievalService, classifier ports.TicketClassifier, support ports.SupportDesk) *Server {
	return &Server{retrieval: retrieval, classifier: classifier, support: support}
}

// MCPServer builds the protocol server with every configured tool registered.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("assistly", version, server.WithToolCapabilities(false))

	if s.retrieval != nil {
		srv.AddTool(mcp.NewTool(ToolSearchDocs,
			mcp.WithDescription("Answer a question from the product documentation using hybrid search. Returns the answer and its source URLs."),
			mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
			mcp.WithString("session_id", mcp.Description("Conversation id for follow-up questions")),
		), s.searchDocs)
	}
	if s.classifier != nil {
		srv.AddTool(mcp.NewTool(ToolClassifyTicket,
			mcp.WithDescription("Classify a support ticket into topic tags, sentiment and priority."),
			mcp.WithString("subject", mcp.Description("Ticket subject line")),
			mcp.WithString("body", mcp.Required(), mcp.Description("Ticket body")),
		), s.classifyTicket)
	}
	if s.support != nil {
		srv.AddTool(mcp.NewTool(ToolRespond,
			mcp.WithDescription("Classify a support request, then answer it from the documentation or route it to the right team."),
			mcp.WithString("content", mcp.Required(), mcp.Description("Request text, optionally starting with 'Subject: ...'")),
			mcp.WithString("session_id", mcp.Description("Conversation id for follow-up questions")),
		), s.respond)
	}
	return srv
}

func (s *Server) searchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	resp, err := s.retrieval.Handle(ctx, question, req.GetString("session_id", ""))
	if err != nil {
		return toolError(ToolSearchDocs, err), nil
	}
	return jsonResult(resp)
}

func (s *Server) classifyTicket(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError("body is required"), nil
	}
	cls := s.classifier.Classify(ctx, req.GetString("subject", ""), body)
	return jsonResult(cls)
}

func (s *Server) respond(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil || strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("content is required"), nil
	}
	reply, err := s.support.Respond(ctx, content, req.GetString("session_id", ""))
	if err != nil {
		return toolError(ToolRespond, err), nil
	}
	return jsonResult(reply)
}

// toolError hides backend details the same way the HTTP API does.
func toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrCorpusUnavailable):
		slog.Warn("mcp_tool_unavailable", "tool", tool, "error", err)
		return mcp.NewToolResultError("service temporarily unavailable, retry later")
	default:
		slog.Error("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
