// Package mcp exposes the session orchestrator as MCP tools so an MCP
// client can drive the full ask → confirm → review → tickets flow.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/YalmanchiliTejas/Product-manager/internal/docload"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/orchestrator"
	"github.com/YalmanchiliTejas/Product-manager/internal/session"
)

// Server wraps the session layer and exposes it as MCP tools.
type Server struct {
	sessions *session.Manager
	orch     *orchestrator.Orchestrator
}

// NewServer creates the MCP server wrapper.
func NewServer(sm *session.Manager, orch *orchestrator.Orchestrator) *Server {
	return &Server{sessions: sm, orch: orch}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("pma", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.createSessionTool())
	srv.AddTool(s.askTool())
	srv.AddTool(s.confirmTool())
	srv.AddTool(s.reviewDocumentTool())
	srv.AddTool(s.getTasksTool())
	srv.AddTool(s.getDocumentTool())
	srv.AddTool(s.getTicketsTool())
	srv.AddTool(s.endSessionTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// pma_create_session
func (s *Server) createSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_create_session",
		mcp.WithDescription("Create an analysis session over a directory of interview/source documents. Returns the session id and greeting."),
		mcp.WithString("documents_dir", mcp.Required(), mcp.Description("Directory containing .txt/.md/.vtt/.srt source files")),
		mcp.WithString("project_id", mcp.Description("Project id to group sessions and memory under")),
		mcp.WithString("market_context", mcp.Description("Optional market context to include in analysis")),
	)
	return tool, s.handleCreateSession
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := request.RequireString("documents_dir")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: documents_dir"), nil
	}
	docs, err := docload.LoadDir(dir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load documents: %v", err)), nil
	}

	sess, err := s.sessions.Create(ctx, request.GetString("project_id", ""), "mcp-user", docs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create session: %v", err)), nil
	}
	sess.MarketContext = request.GetString("market_context", "")
	if err := s.orch.Start(sess); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.persist(ctx, sess)

	return mcp.NewToolResultText(fmt.Sprintf("Session %s created.\n\n%s",
		sess.ID, lastAssistantMessage(sess))), nil
}

// pma_ask
func (s *Server) askTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_ask",
		mcp.WithDescription("Ask a product question in a session. Plans a task batch and suspends for confirmation unless auto_confirm is set."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("question", mcp.Required(), mcp.Description("The product question to analyse")),
		mcp.WithBoolean("auto_confirm", mcp.Description("Run the full pipeline without confirmation stops")),
	)
	return tool, s.handleAsk
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.lookup(ctx, request)
	if result != nil {
		return result, nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	if err := s.orch.Ask(ctx, sess, question, request.GetBool("auto_confirm", false)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.persist(ctx, sess)
	return mcp.NewToolResultText(lastAssistantMessage(sess)), nil
}

// pma_confirm
func (s *Server) confirmTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_confirm",
		mcp.WithDescription("Respond to a pending task confirmation. 'yes' confirms, 'no' rejects, anything else is a modification note."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("response", mcp.Description("Confirmation response; defaults to yes")),
	)
	return tool, s.handleConfirm
}

func (s *Server) handleConfirm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.lookup(ctx, request)
	if result != nil {
		return result, nil
	}
	if err := s.orch.Confirm(ctx, sess, request.GetString("response", "yes")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.persist(ctx, sess)
	return mcp.NewToolResultText(lastAssistantMessage(sess)), nil
}

// pma_review_document
func (s *Server) reviewDocumentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_review_document",
		mcp.WithDescription("Respond to a pending document review. 'approve' or 'skip' advance the pipeline; anything else is revision feedback."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("response", mcp.Description("Review response; defaults to approve")),
	)
	return tool, s.handleReviewDocument
}

func (s *Server) handleReviewDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.lookup(ctx, request)
	if result != nil {
		return result, nil
	}
	if err := s.orch.ReviewDocument(ctx, sess, request.GetString("response", "approve")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.persist(ctx, sess)
	return mcp.NewToolResultText(lastAssistantMessage(sess)), nil
}

// pma_get_tasks
func (s *Server) getTasksTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_get_tasks",
		mcp.WithDescription("Get the session's current phase and task list as JSON."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	)
	return tool, s.handleGetTasks
}

func (s *Server) handleGetTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.lookup(ctx, request)
	if result != nil {
		return result, nil
	}
	return jsonResult(map[string]any{"phase": sess.Phase, "tasks": sess.Tasks})
}

// pma_get_document
func (s *Server) getDocumentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_get_document",
		mcp.WithDescription("Get the generated requirements document as markdown."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	)
	return tool, s.handleGetDocument
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.lookup(ctx, request)
	if result != nil {
		return result, nil
	}
	if sess.Document == nil {
		return mcp.NewToolResultError("no document generated yet"), nil
	}
	return mcp.NewToolResultText(sess.Document.Markdown()), nil
}

// pma_get_tickets
func (s *Server) getTicketsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_get_tickets",
		mcp.WithDescription("Get the generated implementation tickets as JSON."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	)
	return tool, s.handleGetTickets
}

func (s *Server) handleGetTickets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, result := s.lookup(ctx, request)
	if result != nil {
		return result, nil
	}
	return jsonResult(sess.Tickets)
}

// pma_end_session
func (s *Server) endSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pma_end_session",
		mcp.WithDescription("End a session: flush extracted memory and evict session caches."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	)
	return tool, s.handleEndSession
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	sess, err := s.sessions.End(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(lastAssistantMessage(sess)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) lookup(ctx context.Context, request mcp.CallToolRequest) (*models.Session, *mcp.CallToolResult) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: session_id")
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return sess, nil
}

func (s *Server) persist(ctx context.Context, sess *models.Session) {
	_ = s.sessions.Save(ctx, sess)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func lastAssistantMessage(sess *models.Session) string {
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role == models.RoleAssistant {
			return sess.Messages[i].Content
		}
	}
	return ""
}
