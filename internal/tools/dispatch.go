package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"taxo-mcp/internal/taxo"
)

// ServerName and Version identify this server to MCP clients and on /health.
const (
	ServerName = "taxo-mcp"
	Version    = "1.0.0"
)

// ValidationError is returned when caller arguments fail a tool's schema. It
// never reaches the wire as a protocol fault; Dispatch turns it into an error
// envelope.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// errorPayload is the uniform error body carried as the envelope text for
// every failed call.
type errorPayload struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    any    `json:"details,omitempty"`
}

// NewServer builds an MCP server exposing the full catalog, bound to the
// given client. Both transports construct their servers through here so the
// tool set can never drift between them.
func NewServer(client *taxo.Client) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: Version,
	}, nil)

	for _, t := range Catalog() {
		name := t.Name
		schema, err := json.Marshal(t.InputSchema())
		if err != nil {
			panic(fmt.Sprintf("tool %s: unmarshalable schema: %v", name, err))
		}
		server.AddTool(
			&mcp.Tool{
				Name:        name,
				Description: t.Description,
				InputSchema: json.RawMessage(schema),
			},
			func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var args map[string]any
				if len(req.Params.Arguments) > 0 {
					if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
						return errorResult(&ValidationError{Message: fmt.Sprintf("invalid arguments: %v", err)}), nil
					}
				}
				return Dispatch(ctx, client, name, args), nil
			},
		)
	}
	return server
}

// Dispatch runs one tool call end to end: catalog lookup, argument
// validation, the upstream request, and envelope construction. Every outcome
// is a well-formed result; errors never escape as faults.
func Dispatch(ctx context.Context, client *taxo.Client, name string, args map[string]any) *mcp.CallToolResult {
	tool, ok := Lookup(name)
	if !ok {
		return errorResult(fmt.Errorf("unknown tool %q", name))
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := tool.Validate(args); err != nil {
		return errorResult(err)
	}
	out, err := tool.call(ctx, client, args)
	if err != nil {
		return errorResult(err)
	}
	return successResult(out)
}

func successResult(v any) *mcp.CallToolResult {
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}
}

// errorResult classifies err into the error taxonomy and wraps it in the
// uniform envelope with the protocol-level error flag set.
func errorResult(err error) *mcp.CallToolResult {
	payload := errorPayload{Error: true, Message: err.Error()}

	var upstream *taxo.UpstreamError
	var transport *taxo.TransportError
	var validation *ValidationError
	switch {
	case errors.As(err, &upstream):
		payload.Message = upstream.Message
		payload.StatusCode = upstream.StatusCode
		payload.Details = upstream.Details
	case errors.As(err, &transport):
		payload.Message = "upstream API unreachable"
		payload.Details = transport.Err.Error()
	case errors.As(err, &validation):
		payload.Message = validation.Message
	}

	text, merr := json.MarshalIndent(payload, "", "  ")
	if merr != nil {
		text = []byte(fmt.Sprintf(`{"error": true, "message": %q}`, err.Error()))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		IsError: true,
	}
}
