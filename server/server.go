// Package server exposes the Mender API client over the Model Context
// Protocol. Tools and resources translate validated agent requests into
// client calls and render the typed results as human-readable text.
//
// API and validation failures come back to the agent as IsError tool
// results with the sanitized message; only transport-level protocol
// problems surface as MCP errors. Unexpected errors never leave the
// boundary unsanitized.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/pasinskim/mender-mcp/mender"
	"github.com/pasinskim/mender-mcp/security"
)

// Server is the MCP protocol shell around one Mender client.
type Server struct {
	client *mender.Client
	logger zerolog.Logger
	mcp    *mcp.Server
}

// New creates the MCP server and registers all tools and resources.
func New(client *mender.Client, version string, logger zerolog.Logger) *Server {
	s := &Server{
		client: client,
		logger: logger,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "mender",
			Version: version,
		}, nil),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Run serves MCP over stdio until the context is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Msg("Starting Mender MCP server on stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult renders a failure as an IsError tool result the agent can
// read and react to. Typed errors carry their own sanitized messages;
// anything unclassified goes through the sanitizer before leaving.
func errorResult(err error) *mcp.CallToolResult {
	var message string

	var apiErr *mender.APIError
	var validationErr *security.ValidationError
	switch {
	case errors.As(err, &apiErr):
		message = "Mender API error: " + apiErr.Message
		if apiErr.StatusCode > 0 {
			message += fmt.Sprintf(" (HTTP %d)", apiErr.StatusCode)
		}
	case errors.As(err, &validationErr):
		message = "Input validation failed: " + validationErr.Error()
	default:
		message = "Unexpected error: " + security.SanitizeMessage(err.Error())
	}

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}
