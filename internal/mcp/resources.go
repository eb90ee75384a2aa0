package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kutbudev/agenda-cli/internal/models"
)

// registerResources adds read-only views of the planner.
func registerResources(server *mcp.Server, t *Tools) {
	server.AddResource(&mcp.Resource{
		URI:         "agenda://tags",
		Name:        "tags",
		Description: "The tag catalog",
		MIMEType:    "application/json",
	}, t.tagsResource)

	server.AddResource(&mcp.Resource{
		URI:         "agenda://activities",
		Name:        "activities",
		Description: "All activity templates",
		MIMEType:    "application/json",
	}, t.activitiesResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "agenda://activities/{id}",
		Name:        "activity",
		Description: "One activity with the events scheduled from it",
		MIMEType:    "application/json",
	}, t.activityResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "agenda://days/{date}",
		Name:        "day",
		Description: "Events on one day (YYYY-MM-DD)",
		MIMEType:    "application/json",
	}, t.dayResource)
}

// extractIDFromURI extracts the {id} portion from a resource URI
func extractIDFromURI(uri, prefix, suffix string) string {
	s := strings.TrimPrefix(uri, prefix)
	if suffix != "" {
		s = strings.TrimSuffix(s, suffix)
	}
	return s
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (t *Tools) tagsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, tagMaps(t.planner.Tags.Catalog()))
}

func (t *Tools) activitiesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	items := []map[string]interface{}{}
	for _, a := range t.planner.Activities.List() {
		items = append(items, activityMap(a))
	}
	return jsonResource(req.Params.URI, items)
}

func (t *Tools) activityResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := extractIDFromURI(req.Params.URI, "agenda://activities/", "")
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	a, err := t.planner.Activities.Get(models.ID(id))
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	var events []map[string]interface{}
	for _, e := range t.planner.Calendar.Events() {
		if e.ActivityID == a.ID {
			events = append(events, t.eventMap(e))
		}
	}
	out := activityMap(a)
	out["events"] = events
	return jsonResource(req.Params.URI, out)
}

func (t *Tools) dayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	date := extractIDFromURI(req.Params.URI, "agenda://days/", "")
	day, err := t.planner.Zone.ParseDate(date)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	items := []map[string]interface{}{}
	for _, e := range t.planner.Calendar.EventsBetween(day, day.AddDate(0, 0, 1)) {
		items = append(items, t.eventMap(e))
	}
	return jsonResource(req.Params.URI, map[string]interface{}{
		"date":   t.planner.Zone.FormatDate(day),
		"events": items,
	})
}
