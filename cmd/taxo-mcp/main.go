// Command taxo-mcp serves the Taxo MX tool catalog over MCP, either on
// stdio for local process embedding or as a stateless HTTP endpoint.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"taxo-mcp/internal/server"
	"taxo-mcp/internal/taxo"
	"taxo-mcp/internal/tools"
)

var (
	tokenFlag  string
	apiURL     string
	reportsURL string
)

var rootCmd = &cobra.Command{
	Use:          "taxo-mcp",
	Short:        "MCP server for the Taxo MX tax-data API",
	Version:      tools.Version,
	SilenceUsage: true,
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve MCP over stdin/stdout using one process-wide token",
	RunE:  runStdio,
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve MCP over HTTP with per-request tokens",
	RunE:  runHTTP,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "override the primary API base URL")
	rootCmd.PersistentFlags().StringVar(&reportsURL, "reports-url", "", "override the reports API base URL")
	stdioCmd.Flags().StringVar(&tokenFlag, "token", "", "Taxo API bearer token (falls back to TAXO_MX_TOKEN)")
	rootCmd.AddCommand(stdioCmd, httpCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runStdio(cmd *cobra.Command, _ []string) error {
	token := tokenFlag
	if token == "" {
		token = os.Getenv("TAXO_MX_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("no token: pass --token or set TAXO_MX_TOKEN")
	}

	client := taxo.New(token, apiURL, reportsURL, nil)
	srv := tools.NewServer(client)
	return srv.Run(cmd.Context(), &mcp.StdioTransport{})
}

func runHTTP(cmd *cobra.Command, _ []string) error {
	port := getEnv("PORT", "3000")
	cfg := server.Config{
		Port:        port,
		BaseURL:     getEnv("BASE_URL", "http://localhost:"+port),
		APIBase:     apiURL,
		ReportsBase: reportsURL,
	}
	srv := server.New(cfg)
	log.Printf("%s %s listening on :%s", tools.ServerName, tools.Version, cfg.Port)
	log.Printf("MCP endpoint: %s/mcp/<token> (or %s/mcp with Authorization: Bearer)", cfg.BaseURL, cfg.BaseURL)
	return http.ListenAndServe(":"+cfg.Port, srv.Router())
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
