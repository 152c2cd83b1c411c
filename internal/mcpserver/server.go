// Package mcpserver exposes extraction to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/On-Jun9/MetaProbe/internal/pipeline"
	"github.com/On-Jun9/MetaProbe/internal/postproc"
	"github.com/On-Jun9/MetaProbe/internal/render"
)

const processorsURI = "metaprobe://processors"

type Server struct {
	pipeline *pipeline.Pipeline
	mcp      *server.MCPServer
}

func New(p *pipeline.Pipeline, version string) *Server {
	s := &Server{
		pipeline: p,
		mcp: server.NewMCPServer(
			"MetaProbe",
			version,
			server.WithResourceCapabilities(false, false),
			server.WithToolCapabilities(false),
		),
	}

	s.mcp.AddResource(
		mcp.NewResource(
			processorsURI,
			"Post-processors",
			mcp.WithResourceDescription("Names accepted by decode_value"),
			mcp.WithMIMEType("text/plain"),
		),
		s.handleProcessors,
	)

	s.mcp.AddTool(
		mcp.NewTool(
			"extract_metadata",
			mcp.WithDescription("Extract metadata from a file reference such as storage:1:photo.jpg or EXT:ext/Resources/Public/a.pdf."),
			mcp.WithString("file", mcp.Required(), mcp.Description("File reference")),
			mcp.WithString("service", mcp.Required(), mcp.Description("Backend: pdfinfo, exiftool, tika, php or docconv")),
			mcp.WithString("format", mcp.Description("text (default) or json")),
		),
		s.handleExtract,
	)

	s.mcp.AddTool(
		mcp.NewTool(
			"list_services",
			mcp.WithDescription("List the extraction backends and whether they can run with the current configuration."),
		),
		s.handleListServices,
	)

	s.mcp.AddTool(
		mcp.NewTool(
			"decode_value",
			mcp.WithDescription("Convert a raw metadata value, e.g. a GPS coordinate or a date, with a post-processor."),
			mcp.WithString("processor", mcp.Required(), mcp.Description("Gps::toDecimal or DateTime::timestamp")),
			mcp.WithString("value", mcp.Required(), mcp.Description("Raw value")),
		),
		s.handleDecode,
	)

	return s
}

// Serve blocks until stdin is closed.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	file, ok := args["file"].(string)
	if !ok || strings.TrimSpace(file) == "" {
		return mcp.NewToolResultError("file argument required"), nil
	}
	service, ok := args["service"].(string)
	if !ok {
		return mcp.NewToolResultError("service argument required"), nil
	}
	format, _ := args["format"].(string)

	// stdio clients run on the local machine
	result := s.pipeline.Extract(ctx, pipeline.Request{Reference: file, Service: service, Authorized: true})
	if !result.Success {
		return mcp.NewToolResultError(result.Message), nil
	}

	if strings.EqualFold(format, "json") {
		data, err := json.MarshalIndent(result.Metadata, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal metadata: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(render.Text(result.Metadata)), nil
}

func (s *Server) handleListServices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.pipeline.Services(ctx), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal services: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleDecode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	processor, ok := args["processor"].(string)
	if !ok {
		return mcp.NewToolResultError("processor argument required"), nil
	}
	value, ok := args["value"].(string)
	if !ok {
		return mcp.NewToolResultError("value argument required"), nil
	}

	decoded, err := s.pipeline.Decode(processor, value)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(decoded), nil
}

func (s *Server) handleProcessors(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     strings.Join(postproc.Names(), "\n"),
		},
	}, nil
}
