package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/siherrmann/hrrag/model"
)

// Handlers implements the HR tools on top of an Assistant
type Handlers struct {
	assistant Assistant
	log       *slog.Logger
}

type askResponse struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
	Failed    bool     `json:"llm_failed,omitempty"`
}

type searchHit struct {
	Rank   int            `json:"rank"`
	Source string         `json:"source"`
	Kind   string         `json:"kind"`
	Score  float64        `json:"score"`
	Text   string         `json:"text"`
	Meta   model.Metadata `json:"metadata,omitempty"`
}

// AskHRAssistant handles the ask_hr_assistant tool
func (h *Handlers) AskHRAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	k := request.GetInt("k", 0)

	answer, err := h.assistant.Retrieve(ctx, question, k)
	if err != nil {
		h.log.Error("Tool call failed", slog.String("tool", ToolAsk), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	return jsonResult(askResponse{
		Answer:    answer.Text,
		Citations: answer.Citations,
		Failed:    answer.Failed(),
	})
}

// SearchHRDocuments handles the search_hr_documents tool
func (h *Handlers) SearchHRDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	k := request.GetInt("k", 0)

	results, err := h.assistant.Search(ctx, query, k)
	if err != nil {
		h.log.Error("Tool call failed", slog.String("tool", ToolSearch), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			Rank:   r.Rank,
			Source: r.Record.Source,
			Kind:   string(r.Record.Kind),
			Score:  r.Score,
			Text:   r.Record.Text,
			Meta:   r.Record.Metadata,
		})
	}
	return jsonResult(hits)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
