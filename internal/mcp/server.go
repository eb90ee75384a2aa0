package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kutbudev/agenda-cli/internal/notify"
	"github.com/kutbudev/agenda-cli/internal/planner"
)

const instructions = `📅 AGENDA - Activity planner

Activities are reusable templates (title, colour, tags). Scheduling an
activity creates a calendar event that snapshots them.

## Quick Reference
- LIST: list_activities(), list_tags(), list_events(from: "2024-06-01", to: "2024-06-08")
- PLAN: schedule_activity(activity: "3" or "Enviar informe", date: "2024-06-01", time: "14:30")
- EDIT: move_event(event_id: "12", start: "2024-06-02T09:00:00")
- DROP: delete_event(event_id: "12")

Times are wall-clock times in the planner's timezone, written
YYYY-MM-DDTHH:MM:SS without an offset.`

// Tools holds what the tool handlers share. Planner notifications are
// collected in notes and returned with each tool result.
type Tools struct {
	planner *planner.Planner
	notes   *notify.Recorder
}

// NewTools binds tool handlers to p. notes must be the planner's sink.
func NewTools(p *planner.Planner, notes *notify.Recorder) *Tools {
	if notes == nil {
		notes = &notify.Recorder{}
	}
	return &Tools{planner: p, notes: notes}
}

// NewServer returns an MCP server exposing the planner tools.
func NewServer(t *Tools, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "agenda",
			Version: version,
		},
		&mcp.ServerOptions{Instructions: instructions},
	)
	registerTools(server, t)
	registerResources(server, t)
	registerPrompts(server)
	return server
}

// ServeStdio runs the planner tools over stdio until ctx is done.
func ServeStdio(ctx context.Context, p *planner.Planner, notes *notify.Recorder, version string) error {
	if p == nil {
		return errors.New("planner is required")
	}
	return NewServer(NewTools(p, notes), version).Run(ctx, &mcp.StdioTransport{})
}

// ready loads the planner on first use.
func (t *Tools) ready(ctx context.Context) error {
	if err := t.planner.Initialize(ctx); err != nil {
		return fmt.Errorf("planner not loaded: %w", err)
	}
	return nil
}

// respond wraps data with the notifications raised while producing it.
func (t *Tools) respond(data map[string]interface{}) *mcp.CallToolResult {
	if data == nil {
		data = map[string]interface{}{}
	}
	if msgs := t.notes.Drain(); len(msgs) > 0 {
		out := make([]map[string]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, map[string]string{"kind": string(m.Kind), "message": m.Text})
		}
		data["notifications"] = out
	}
	return mustTextResult(data)
}

// fail drains pending notifications so they do not leak into the next
// result, then returns err for the SDK to report.
func (t *Tools) fail(err error) (*mcp.CallToolResult, interface{}, error) {
	t.notes.Drain()
	return nil, nil, err
}

func textResult(data interface{}) (*mcp.CallToolResult, error) {
	if data == nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "{}"},
			},
		}, nil
	}
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, nil
}

func mustTextResult(data interface{}) *mcp.CallToolResult {
	res, err := textResult(data)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, err.Error())},
			},
			IsError: true,
		}
	}
	return res
}

func boolPtr(b bool) *bool { return &b }
