package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/minuted/internal/index"
	"github.com/kalambet/minuted/internal/questions"
	"github.com/kalambet/minuted/internal/rag"
)

// MCPIndexer abstracts the knowledge base operations the MCP layer needs.
type MCPIndexer interface {
	IndexFile(ctx context.Context, path string, chunkSize, overlap int) (index.Document, error)
	Search(ctx context.Context, query string, n int) ([]index.Passage, error)
	ListDocuments(ctx context.Context) ([]index.Document, error)
}

// MCPAnswerer abstracts question answering for the MCP layer.
type MCPAnswerer interface {
	Answer(ctx context.Context, question, meetingContext string, attachments []string) (rag.Answer, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Indexer  MCPIndexer
	Answerer MCPAnswerer

	// Defaults applied when a tool call omits chunking parameters.
	ChunkSize int
	Overlap   int
}

// NewMCPServer creates an MCP server with all minuted tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"minuted",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("minuted — local knowledge base and meeting assistant for transcript question answering."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("index_document",
			mcp.WithDescription("Index a local file into the knowledge base so its content can be retrieved later."),
			mcp.WithString("path", mcp.Description("Path to the file to index"), mcp.Required()),
		),
		mcpIndexDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("search_knowledge",
			mcp.WithDescription("Semantically search the knowledge base and return relevant passages."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchKnowledge(deps),
	)

	s.AddTool(
		mcp.NewTool("detect_questions",
			mcp.WithDescription("Detect questions in a meeting transcript and return them with offsets and confidence scores."),
			mcp.WithString("transcript", mcp.Description("Transcript text to scan"), mcp.Required()),
		),
		mcpDetectQuestions(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a question using the knowledge base and optional meeting context."),
			mcp.WithString("question", mcp.Description("Question to answer"), mcp.Required()),
			mcp.WithString("meeting_context", mcp.Description("Optional transcript excerpt for context")),
		),
		mcpAsk(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"kb://documents",
			"Indexed Documents",
			mcp.WithResourceDescription("All documents currently in the knowledge base as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDocuments(deps),
	)

	return s
}

func mcpIndexDocument(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}

		doc, err := deps.Indexer.IndexFile(ctx, path, deps.ChunkSize, deps.Overlap)
		if err != nil {
			return mcpError(fmt.Sprintf("indexing failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Indexed %s as %s (%d chunks)", doc.Filename, doc.DocID, doc.ChunkCount)), nil
	}
}

func mcpSearchKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		passages, err := deps.Indexer.Search(ctx, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(passages) == 0 {
			return mcpText("[]"), nil
		}

		type passageResult struct {
			Text     string  `json:"text"`
			Filename string  `json:"filename"`
			DocID    string  `json:"doc_id"`
			Distance float64 `json:"distance"`
		}

		results := make([]passageResult, len(passages))
		for i, p := range passages {
			results[i] = passageResult{
				Text:     p.Text,
				Filename: p.Source.Filename,
				DocID:    p.Source.DocID,
				Distance: p.Distance,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpDetectQuestions() server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		transcript, err := req.RequireString("transcript")
		if err != nil {
			return mcpError("transcript is required"), nil
		}

		detected := questions.Detect(transcript)
		if len(detected) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(detected)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal questions: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		meetingContext := req.GetString("meeting_context", "")

		answer, err := deps.Answerer.Answer(ctx, question, meetingContext, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("answering failed: %v", err)), nil
		}

		b, err := json.Marshal(answer)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceDocuments(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs, err := deps.Indexer.ListDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		if docs == nil {
			docs = []index.Document{}
		}

		b, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
