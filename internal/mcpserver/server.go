// Package mcpserver exposes the Request Dispatcher's operation catalog as
// an MCP tool server, grounded on the teacher's internal/mcp package:
// mcp.NewServer + AddTool per tool, stdio transport, and an error
// envelope that always reports tool failures as IsError rather than a
// protocol-level error (spec.md §4.10 "RPC transport").
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/lci-refactor/internal/dispatcher"
	"github.com/standardbeagle/lci-refactor/internal/refactor"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

func compileBatchPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

func newBatchReplaceRequest(glob string, pattern *regexp.Regexp, template string) refactor.BatchReplaceRequest {
	return refactor.BatchReplaceRequest{Glob: glob, Pattern: pattern, Template: template}
}

// Server wraps a Dispatcher with the MCP tool surface.
type Server struct {
	disp   *dispatcher.Dispatcher
	logger *log.Logger
	server *mcp.Server
}

// New constructs a Server over disp. A nil logger defaults to the
// standard logger.
func New(disp *dispatcher.Dispatcher, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		disp:   disp,
		logger: logger,
		server: mcp.NewServer(&mcp.Implementation{Name: "refactor-mcp-server", Version: "0.1.0"}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the tool catalog over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("mcpserver: starting stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func strSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func intSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func boolSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func strArraySchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: desc}
}

// locationProps is shared by every tool that resolves a symbol at a
// source position.
func locationProps() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"path":   strSchema("Absolute or project-relative file path"),
		"line":   intSchema("1-based line number"),
		"column": intSchema("1-based column number"),
	}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "rename_symbol",
		Description: "Rename the symbol at a source position across every file the project index knows about. Defaults to a preview; set preview=false to write.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: mergeProps(locationProps(), map[string]*jsonschema.Schema{
				"new_name": strSchema("Replacement identifier"),
				"preview":  boolSchema("Render a diff instead of writing (default true)"),
			}),
			Required: []string{"path", "line", "column", "new_name"},
		},
	}, s.handleRenameSymbol)

	s.server.AddTool(&mcp.Tool{
		Name:        "inline_variable",
		Description: "Inline the immutable local variable declared at a source position into each of its uses. Defaults to a preview; set preview=false to write.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: mergeProps(locationProps(), map[string]*jsonschema.Schema{
				"preview": boolSchema("Render a diff instead of writing (default true)"),
			}),
			Required: []string{"path", "line", "column"},
		},
	}, s.handleInlineVariable)

	s.server.AddTool(&mcp.Tool{
		Name:        "batch_replace",
		Description: "Apply a regex-driven rewrite across every file matching a glob under the project root. Supports $1/${name} capture-group substitution. Defaults to a preview; set preview=false to write.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"glob":     strSchema("doublestar glob, relative to the project root"),
				"pattern":  strSchema("RE2 regular expression"),
				"template": strSchema("Replacement template"),
				"preview":  boolSchema("Render a diff instead of writing (default true)"),
			},
			Required: []string{"glob", "pattern", "template"},
		},
	}, s.handleBatchReplace)

	s.server.AddTool(&mcp.Tool{
		Name:        "goto_definition",
		Description: "Resolve the symbol at a source position and return its definition occurrence.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: locationProps(),
			Required:   []string{"path", "line", "column"},
		},
	}, s.handleGotoDefinition)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_references",
		Description: "Resolve the symbol at a source position and return every reference to it, paginated.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: mergeProps(locationProps(), map[string]*jsonschema.Schema{
				"limit":  intSchema("Max results per page (default 100)"),
				"offset": intSchema("Results to skip (default 0)"),
			}),
			Required: []string{"path", "line", "column"},
		},
	}, s.handleFindReferences)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_functions",
		Description: "List function-shaped declarations across files matching a glob (default **/*), paginated.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"glob":   strSchema("doublestar glob, relative to the project root"),
				"limit":  intSchema("Max results per page (default 100)"),
				"offset": intSchema("Results to skip (default 0)"),
			},
		},
	}, s.handleListFunctions)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_classes",
		Description: "List class-shaped declarations (struct/enum/trait stand in for languages without a class keyword) across files matching a glob, paginated.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"glob":   strSchema("doublestar glob, relative to the project root"),
				"limit":  intSchema("Max results per page (default 100)"),
				"offset": intSchema("Results to skip (default 0)"),
			},
		},
	}, s.handleListClasses)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_ast",
		Description: "Search for every tree-sitter node whose kind equals node_kind across files matching a glob, paginated. A raw structural query, not limited to the function/class taxonomy.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"glob":      strSchema("doublestar glob, relative to the project root"),
				"node_kind": strSchema("tree-sitter node kind, e.g. call_expression"),
				"limit":     intSchema("Max results per page (default 100)"),
				"offset":    intSchema("Results to skip (default 0)"),
			},
			Required: []string{"node_kind"},
		},
	}, s.handleSearchAST)

	s.server.AddTool(&mcp.Tool{
		Name:        "index_project",
		Description: "Run the indexer subprocess for the given languages (or every detected language, if omitted) and reload the project index.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"languages": strArraySchema("Languages to index, e.g. [\"typescript\",\"rust\"]; omit to auto-detect"),
			},
		},
	}, s.handleIndexProject)

	s.server.AddTool(&mcp.Tool{
		Name:        "watcher_start",
		Description: "Start the background file watcher for the project root.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleWatcherStart)

	s.server.AddTool(&mcp.Tool{
		Name:        "watcher_stop",
		Description: "Stop the background file watcher, blocking until any in-flight indexer invocation finishes.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleWatcherStop)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_watcher_status",
		Description: "Report the file watcher's current activity snapshot.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleWatcherStatus)
}

func mergeProps(a, b map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// locationParams is the common shape for every position-resolving tool.
type locationParams struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (p locationParams) toLocation() types.Location {
	return types.Location{Path: p.Path, Line: p.Line, Column: p.Column}
}

type renameSymbolParams struct {
	locationParams
	NewName string `json:"new_name"`
	Preview *bool  `json:"preview"`
}

func (s *Server) handleRenameSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p renameSymbolParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("rename_symbol", fmt.Errorf("invalid parameters: %w", err))
	}
	result, err := s.disp.RenameSymbol(ctx, p.toLocation(), p.NewName, previewOr(p.Preview, true))
	if err != nil {
		return createErrorResponse("rename_symbol", err)
	}
	return createJSONResponse(result)
}

type inlineVariableParams struct {
	locationParams
	Preview *bool `json:"preview"`
}

func (s *Server) handleInlineVariable(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p inlineVariableParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("inline_variable", fmt.Errorf("invalid parameters: %w", err))
	}
	result, err := s.disp.InlineVariable(ctx, p.toLocation(), previewOr(p.Preview, true))
	if err != nil {
		return createErrorResponse("inline_variable", err)
	}
	return createJSONResponse(result)
}

type batchReplaceParams struct {
	Glob     string `json:"glob"`
	Pattern  string `json:"pattern"`
	Template string `json:"template"`
	Preview  *bool  `json:"preview"`
}

func (s *Server) handleBatchReplace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p batchReplaceParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("batch_replace", fmt.Errorf("invalid parameters: %w", err))
	}
	re, err := compileBatchPattern(p.Pattern)
	if err != nil {
		return createErrorResponse("batch_replace", fmt.Errorf("invalid pattern: %w", err))
	}
	result, err := s.disp.BatchReplace(ctx, newBatchReplaceRequest(p.Glob, re, p.Template), previewOr(p.Preview, true))
	if err != nil {
		return createErrorResponse("batch_replace", err)
	}
	return createJSONResponse(result)
}

func (s *Server) handleGotoDefinition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p locationParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("goto_definition", fmt.Errorf("invalid parameters: %w", err))
	}
	occ, err := s.disp.GotoDefinition(ctx, p.toLocation())
	if err != nil {
		return createErrorResponse("goto_definition", err)
	}
	return createJSONResponse(occ)
}

type paginatedLocationParams struct {
	locationParams
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (s *Server) handleFindReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p paginatedLocationParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("find_references", fmt.Errorf("invalid parameters: %w", err))
	}
	items, page, err := s.disp.FindReferences(ctx, p.toLocation(), p.Limit, p.Offset)
	if err != nil {
		return createErrorResponse("find_references", err)
	}
	return createJSONResponse(map[string]interface{}{"references": items, "page": page})
}

type globPageParams struct {
	Glob   string `json:"glob"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func (s *Server) handleListFunctions(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p globPageParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("list_functions", fmt.Errorf("invalid parameters: %w", err))
	}
	items, page, err := s.disp.ListFunctions(ctx, p.Glob, p.Limit, p.Offset)
	if err != nil {
		return createErrorResponse("list_functions", err)
	}
	return createJSONResponse(map[string]interface{}{"functions": items, "page": page})
}

func (s *Server) handleListClasses(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p globPageParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("list_classes", fmt.Errorf("invalid parameters: %w", err))
	}
	items, page, err := s.disp.ListClasses(ctx, p.Glob, p.Limit, p.Offset)
	if err != nil {
		return createErrorResponse("list_classes", err)
	}
	return createJSONResponse(map[string]interface{}{"classes": items, "page": page})
}

type searchASTParams struct {
	Glob     string `json:"glob"`
	NodeKind string `json:"node_kind"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

func (s *Server) handleSearchAST(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p searchASTParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("search_ast", fmt.Errorf("invalid parameters: %w", err))
	}
	items, page, err := s.disp.SearchAST(ctx, p.Glob, p.NodeKind, p.Limit, p.Offset)
	if err != nil {
		return createErrorResponse("search_ast", err)
	}
	return createJSONResponse(map[string]interface{}{"matches": items, "page": page})
}

type indexProjectParams struct {
	Languages []string `json:"languages"`
}

func (s *Server) handleIndexProject(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p indexProjectParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("index_project", fmt.Errorf("invalid parameters: %w", err))
	}
	var langs []types.Language
	for _, l := range p.Languages {
		langs = append(langs, types.Language(l))
	}
	result, err := s.disp.IndexProject(ctx, langs)
	if err != nil {
		return createErrorResponse("index_project", err)
	}
	return createJSONResponse(result)
}

func (s *Server) handleWatcherStart(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.disp.WatcherStart(); err != nil {
		return createErrorResponse("watcher_start", err)
	}
	return createJSONResponse(map[string]interface{}{"success": true})
}

func (s *Server) handleWatcherStop(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.disp.WatcherStop(); err != nil {
		return createErrorResponse("watcher_stop", err)
	}
	return createJSONResponse(map[string]interface{}{"success": true})
}

func (s *Server) handleWatcherStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return createJSONResponse(s.disp.GetWatcherStatus())
}

func previewOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
