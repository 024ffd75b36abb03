// Package mcpserver serves the assistant tool operations over the Model
// Context Protocol, so external agents can plan with the same tools the
// built-in assistant uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/auth"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/tool"
)

// Path is where the handler is mounted on the ops server.
const Path = "/mcp"

// Tools is the operation set exposed as MCP tools.
type Tools interface {
	Schemas() []llm.ToolSchema
	Execute(ctx context.Context, name string, input json.RawMessage) tool.Result
}

// DefaultCacheSize is how many per-principal servers are kept by default.
const DefaultCacheSize = 256

// Server builds MCP servers bound to a caller.
type Server struct {
	tools   Tools
	version string
	cache   *serverCache
	logger  zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCacheSize sets how many per-principal servers are kept.
func WithCacheSize(n int) Option {
	return func(s *Server) { s.cache = newServerCache(n) }
}

// New creates a Server.
func New(tools Tools, version string, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		tools:   tools,
		version: version,
		cache:   newServerCache(DefaultCacheSize),
		logger:  logger.With().Str("component", "mcp").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// For returns an MCP server whose tool calls run as p.
func (s *Server) For(p auth.Principal) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "questplan",
		Version: s.version,
	}, nil)

	for _, schema := range s.tools.Schemas() {
		name := schema.Name
		srv.AddTool(&mcp.Tool{
			Name:        name,
			Description: schema.Description,
			InputSchema: schema.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args json.RawMessage
			if req.Params != nil {
				args = req.Params.Arguments
			}
			res := s.tools.Execute(auth.WithPrincipal(ctx, p), name, args)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: res.JSON()}},
				IsError: !res.Success,
			}, nil
		})
	}
	return srv
}

func (s *Server) forCached(p auth.Principal) *mcp.Server {
	srv, evicted := s.cache.getOrBuild(p, func() *mcp.Server { return s.For(p) })
	if evicted {
		s.logger.Debug().Int("size", s.cache.len()).Msg("MCP server cache full, evicted least recently used")
	}
	return srv
}

// Handler serves streamable HTTP. Every request is authenticated by authn
// and gets a stateless session bound to its principal.
func (s *Server) Handler(authn *auth.Authenticator) http.Handler {
	h := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			return nil
		}
		s.logger.Debug().Str("user_id", p.UserID).Msg("MCP request")
		return s.forCached(p)
	}, &mcp.StreamableHTTPOptions{Stateless: true})
	return authn.HTTP(h)
}
