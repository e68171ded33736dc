package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse wraps data as a single JSON text content block
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the client model sees the error instead of a protocol fault.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	return createSuggestionResponse(operation, err, nil)
}

func createSuggestionResponse(operation string, err error, suggestions []string) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if len(suggestions) > 0 {
		errorData["suggestions"] = suggestions
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}
