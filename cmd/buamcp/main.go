// Command buamcp exposes the action registry as a Model Context Protocol
// server over stdio, so any MCP-capable host (editor, agent runner) can
// drive a single browser session one named action at a time rather than
// through the full autonomous agent loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/anxuanzi/bua-go"
	"github.com/anxuanzi/bua-go/browser"
	"github.com/anxuanzi/bua-go/registry"
)

func main() {
	headless := flag.Bool("headless", true, "run the browser headless")
	profile := flag.String("profile", "", "named profile directory to persist the session under")
	flag.Parse()

	_ = godotenv.Load()

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		log.Fatal("GOOGLE_API_KEY environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bua.New(bua.Config{
		APIKey:      apiKey,
		ProfileName: *profile,
		Headless:    *headless,
	})
	if err != nil {
		log.Fatalf("failed to create agent: %v", err)
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("failed to start browser: %v", err)
	}

	controller := browser.AsController(app.GetAgent().GetBrowser())
	reg := registry.Default()

	srv := mcpserver.NewMCPServer("bua-go", "0.1.0")
	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		srv.AddTool(buildTool(def), buildHandler(reg, def.Name, controller))
	}

	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server exited: %v", err)
	}
}

func buildTool(def *registry.Definition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	for _, p := range def.Params {
		opts = append(opts, propertyOption(p))
	}
	return mcp.NewTool(def.Name, opts...)
}

func propertyOption(p registry.ParamSpec) mcp.ToolOption {
	var propOpts []mcp.PropertyOption
	if p.Required {
		propOpts = append(propOpts, mcp.Required())
	}
	if p.Description != "" {
		propOpts = append(propOpts, mcp.Description(p.Description))
	}
	if len(p.Enum) > 0 {
		propOpts = append(propOpts, mcp.Enum(p.Enum...))
	}

	switch p.Type {
	case registry.TypeInt, registry.TypeFloat:
		return mcp.WithNumber(p.Name, propOpts...)
	case registry.TypeBool:
		return mcp.WithBoolean(p.Name, propOpts...)
	default:
		return mcp.WithString(p.Name, propOpts...)
	}
}

func buildHandler(reg *registry.Registry, name string, controller registry.Controller) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			args = map[string]any{}
		}

		result, err := reg.Execute(ctx, registry.Action{Type: name, Params: args}, controller)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result.Err != nil {
			return mcp.NewToolResultError(result.Err.Message), nil
		}

		text := result.ExtractedContent
		if text == "" {
			text = result.LongTermMemory
		}
		return mcp.NewToolResultText(text), nil
	}
}
