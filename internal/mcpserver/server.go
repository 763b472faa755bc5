// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes critterdex tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sellis/critterdex/internal/apperr"
	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/dexservice"
)

// Server wraps the MCP server with critterdex tools.
type Server struct {
	mcp *server.MCPServer
	svc *dexservice.Service
}

// New creates a new MCP server with all critterdex tools registered.
func New(svc *dexservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Critterdex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_creatures",
		mcp.WithDescription("Search the creature catalog by free text (name, decimal id or type tag substring)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCreatures)

	s.mcp.AddTool(mcp.NewTool("get_creature",
		mcp.WithDescription("Fetch a single creature by numeric id or unique name."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Creature id (e.g. 25) or name (e.g. zappet)")),
	), s.getCreature)

	s.mcp.AddTool(mcp.NewTool("list_deck",
		mcp.WithDescription("List the entries currently saved in the deck, most recently added first."),
	), s.listDeck)

	s.mcp.AddTool(mcp.NewTool("add_to_deck",
		mcp.WithDescription("Add a creature to the deck by id. Fails when the deck is at capacity; "+
			"adding an id that is already present is a no-op."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Numeric creature id")),
	), s.addToDeck)

	s.mcp.AddTool(mcp.NewTool("remove_from_deck",
		mcp.WithDescription("Remove a creature from the deck by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Numeric creature id")),
	), s.removeFromDeck)

	s.mcp.AddTool(mcp.NewTool("deck_stats",
		mcp.WithDescription("Aggregate deck statistics: total, per-type breakdown, oldest/newest entry."),
	), s.deckStats)

	s.mcp.AddTool(mcp.NewTool("export_deck",
		mcp.WithDescription("Export the deck as a versioned JSON document. "+
			"The format is described by the critterdex://export-format resource."),
	), s.exportDeck)

	s.mcp.AddTool(mcp.NewTool("import_deck",
		mcp.WithDescription("Replace the whole deck with the entries of a versioned export document. "+
			"Read the critterdex://export-format resource for the required structure."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Export document JSON")),
	), s.importDeck)

	// Resource: export document format.
	s.mcp.AddResource(
		mcp.NewResource("critterdex://export-format", "Deck Export Format",
			mcp.WithResourceDescription("Versioned JSON document produced by export_deck and accepted by import_deck."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readExportFormatResource,
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

func (s *Server) searchCreatures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.Suggest(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCreature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var record any
	if id, convErr := strconv.Atoi(key); convErr == nil {
		record, err = s.svc.GetCreature(ctx, id)
	} else {
		record, err = s.svc.GetCreatureByName(ctx, strings.ToLower(key))
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", key)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(record, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := s.svc.Deck().All()
	if len(entries) == 0 {
		return mcp.NewToolResultText("the deck is empty"), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addToDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.svc.GetCreature(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no creature with id %d", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	added, err := s.svc.Deck().Add(deck.EntryInput{
		ID:        record.ID,
		Name:      record.Name,
		SpriteURL: record.SpriteURL,
		TypeTags:  record.TypeTags,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDeckFull) {
			return mcp.NewToolResultError(fmt.Sprintf("deck is full (max %d)", s.svc.Deck().MaxSize())), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !added {
		return mcp.NewToolResultText(fmt.Sprintf("%s is already in the deck", record.Name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s (#%d)", record.Name, record.ID)), nil
}

func (s *Server) removeFromDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.svc.Deck().Remove(id) {
		return mcp.NewToolResultError(fmt.Sprintf("id %d is not in the deck", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: #%d", id)), nil
}

func (s *Server) deckStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Deck().Stats(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := s.svc.Deck().ExportChunked(10, nil)
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) importDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.svc.Deck().Import([]byte(doc)) {
		return mcp.NewToolResultError("import rejected: no structurally valid entries in document"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported %d entries", s.svc.Deck().Count())), nil
}

func (s *Server) readExportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "critterdex://export-format",
			MIMEType: "text/markdown",
			Text:     ExportFormatContract,
		},
	}, nil
}

func (s *Server) requireID(req mcp.CallToolRequest) (int, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer, got %q", raw)
	}
	return id, nil
}
