// Package mcpserver exposes the note service as MCP (Model Context Protocol)
// tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tidenotes/internal/apperr"
	"github.com/starford/tidenotes/internal/noteservice"
	"github.com/starford/tidenotes/internal/notes"
)

const formatURI = "notes://markdown-format"

// Server wraps the MCP server with note tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"tidenotes",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally filtered by a case-insensitive text query and an exact tag."),
		mcp.WithString("query", mcp.Description("Text matched against title, content and tags")),
		mcp.WithString("tag", mcp.Description("Exact tag; empty or \"All\" for every note")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. All fields are optional."),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Change the title, content or tags of a note. Omitted fields are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New body")),
		mcp.WithString("tags", mcp.Description("New comma-separated tags; empty string clears them")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("toggle_pin",
		mcp.WithDescription("Pin or unpin a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.togglePin)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List distinct tags in first-seen order, one per line."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("export_note",
		mcp.WithDescription("Render a note as Markdown with YAML frontmatter. See "+formatURI+"."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.exportNote)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Markdown Format",
			mcp.WithResourceDescription("Layout of exported and imported Markdown notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// optString returns the argument and whether it was given at all.
func optString(req mcp.CallToolRequest, key string) (string, bool) {
	v, ok := req.GetArguments()[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func patchFrom(req mcp.CallToolRequest) noteservice.Patch {
	var p noteservice.Patch
	if v, ok := optString(req, "title"); ok {
		p.Title = &v
	}
	if v, ok := optString(req, "content"); ok {
		p.Content = &v
	}
	if v, ok := optString(req, "tags"); ok {
		tags := notes.ParseTags(v)
		p.Tags = &tags
	}
	return p
}

// result turns a service outcome into a tool result. Persist failures still
// return the value, with a warning appended.
func result(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil && !errors.Is(err, apperr.ErrPersist) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var text string
	switch t := v.(type) {
	case string:
		text = t
	default:
		out, mErr := json.MarshalIndent(v, "", "  ")
		if mErr != nil {
			return mcp.NewToolResultError(mErr.Error()), nil
		}
		text = string(out)
	}
	if err != nil {
		text += "\n\nwarning: change kept in memory, storage write failed"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, _ := optString(req, "query")
	tag, _ := optString(req, "tag")
	return result(s.svc.List(ctx, q, tag), nil)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return result(n, nil)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(s.svc.Create(ctx, patchFrom(req)))
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.Update(ctx, id, patchFrom(req)))
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(fmt.Sprintf("deleted: %s", id), s.svc.Delete(ctx, id))
}

func (s *Server) togglePin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.TogglePin(ctx, id))
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags := s.svc.Tags(ctx)
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	return mcp.NewToolResultText(strings.Join(tags, "\n")), nil
}

func (s *Server) exportNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.Export(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     MarkdownFormat,
		},
	}, nil
}
