package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
)

func kindOf(err error) refactorerrors.Kind {
	if re, ok := err.(*refactorerrors.RefactorError); ok {
		return re.Kind
	}
	return ""
}

// createJSONResponse marshals data as the tool's text content, mirroring
// the teacher's internal/mcp response envelope.
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// createErrorResponse reports a tool-level failure inside the result
// envelope with IsError set, per the MCP SDK contract: a protocol-level
// error would hide the message from the calling model, but IsError lets
// it read the message and retry with corrected arguments.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	}
	if kind := kindOf(err); kind != "" {
		errorData["kind"] = kind
	}
	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}
