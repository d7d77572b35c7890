package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	liftmcp "github.com/claude/liftlog/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "LiftLog server URL (e.g. https://liftlog.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("LIFTLOG_API_KEY"), "API key for servers outside the tailnet")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog-mcp", Version)
		return
	}

	// stdout carries the protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-mcp -server <URL> [-api-key KEY]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	client := liftmcp.NewHTTPClient(strings.TrimRight(*serverURL, "/"), *apiKey)
	s := liftmcp.New(client, Version, log)

	log.Info("MCP stdio bridge starting", "server", *serverURL)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("stdio server stopped", "error", err)
		os.Exit(1)
	}
}
