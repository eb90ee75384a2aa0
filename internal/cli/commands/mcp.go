package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/agenda-cli/internal/mcp"
	"github.com/kutbudev/agenda-cli/internal/notify"
	"github.com/kutbudev/agenda-cli/internal/planner"
)

func NewMcpCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "MCP (Model Context Protocol) server management",
		Subcommands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start MCP server (stdio)",
				Action: func(c *cli.Context) error {
					e, err := loadEnv(c)
					if err != nil {
						return err
					}
					// stdout carries the protocol; notifications go back in tool results.
					notes := &notify.Recorder{}
					p := planner.New(planner.Options{
						Backend:         e.backend(),
						Zone:            e.zone,
						Sink:            notes,
						Router:          notes,
						DefaultDuration: e.cfg.DefaultDuration(),
					})
					defer p.Close()

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()
					return mcp.ServeStdio(ctx, p, notes, version)
				},
			},
			{
				Name:  "config",
				Usage: "Print MCP config examples for clients",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "client",
						Aliases: []string{"c"},
						Usage:   "target client (generic|codex)",
						Value:   "generic",
					},
				},
				Action: func(c *cli.Context) error {
					switch strings.ToLower(c.String("client")) {
					case "codex":
						printCodexConfig()
					default:
						printGenericConfig()
					}
					return nil
				},
			},
		},
	}
}

func printGenericConfig() {
	cfg := map[string]interface{}{
		"mcpServers": map[string]interface{}{
			"agenda": map[string]interface{}{
				"command": "agenda",
				"args":    []string{"mcp", "serve"},
			},
		},
	}
	b, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Println(string(b))
}

func printCodexConfig() {
	fmt.Println("# Add the following to ~/.codex/config.toml (merge with existing settings)")
	fmt.Println("[mcp_servers.agenda]")
	fmt.Println("command = \"agenda\"")
	fmt.Println("args = [\"mcp\", \"serve\"]")
	fmt.Println("enabled = true")
}
