package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/siherrmann/hrrag/model"
)

const (
	ToolAsk    = "ask_hr_assistant"
	ToolSearch = "search_hr_documents"
)

// Assistant is the part of hrrag.Assistant the tools call
type Assistant interface {
	Retrieve(ctx context.Context, question string, k int) (*model.Answer, error)
	Search(ctx context.Context, question string, k int) ([]*model.RetrievalResult, error)
}

// NewServer creates an MCP server exposing the HR tools
func NewServer(assistant Assistant, version string, logger *slog.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer("HR Assistant", version)
	RegisterTools(server, assistant, logger)
	return server
}

// RegisterTools registers the HR tools with server
func RegisterTools(server *mcpserver.MCPServer, assistant Assistant, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	handlers := &Handlers{
		assistant: assistant,
		log:       logger,
	}

	server.AddTool(mcp.Tool{
		Name:        ToolAsk,
		Description: "Answer a question about internal HR policies and data. The answer is grounded in the indexed documents and lists the cited source files.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The HR question to answer",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Number of sources to retrieve (default: the configured top_k)",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskHRAssistant)

	server.AddTool(mcp.Tool{
		Name:        ToolSearch,
		Description: "Search the indexed HR documents and return the best matching chunk of each source file, without generating an answer.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sources to return (default: the configured top_k)",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchHRDocuments)

	return handlers
}
