// Package server provides the HTTP transport for the Taxo MX MCP server.
//
// The transport is stateless by construction: every request to /mcp resolves
// its own bearer token and gets a fresh client + MCP server pair that is
// discarded when the exchange completes. Nothing is shared between requests,
// which is what makes horizontal scaling coordination-free.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"taxo-mcp/internal/taxo"
	"taxo-mcp/internal/tools"
)

// Config contains server configuration values such as port and upstream base URLs.
type Config struct {
	Port        string
	BaseURL     string
	APIBase     string
	ReportsBase string
}

// Server contains the configured router and shared upstream HTTP client.
type Server struct {
	cfg        Config
	router     *chi.Mux
	httpClient *http.Client
	mcpHandler http.Handler
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config) *Server {
	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	// Tokens, not origins, are the trust boundary: CORS is fully open.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
	}))
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.mcpHandler = mcp.NewStreamableHTTPHandler(s.serverForRequest, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})

	s.router.Get("/health", s.handleHealth)
	s.router.HandleFunc("/mcp", s.handleMCP)
	s.router.HandleFunc("/mcp/{token}", s.handleMCP)

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"server":  tools.ServerName,
		"version": tools.Version,
	})
}

// handleMCP gates one stateless protocol exchange: method check, token
// resolution, then hand-off to the MCP streamable-HTTP handler.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed; MCP exchanges are POST only",
		})
		return
	}
	if tokenFromRequest(r) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "missing token",
			"hint":  "put the token in the URL path (/mcp/<token>) or send an Authorization: Bearer header",
		})
		return
	}
	s.mcpHandler.ServeHTTP(w, r)
}

// serverForRequest builds the per-request MCP server: one fresh client bound
// to the request's token, discarded when the exchange ends.
func (s *Server) serverForRequest(r *http.Request) *mcp.Server {
	client := taxo.New(tokenFromRequest(r), s.cfg.APIBase, s.cfg.ReportsBase, s.httpClient)
	return tools.NewServer(client)
}

// tokenFromRequest resolves the bearer token for one request. The URL path
// segment wins over the Authorization header.
func tokenFromRequest(r *http.Request) string {
	if token := chi.URLParam(r, "token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
