package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kutbudev/agenda-cli/internal/models"
)

// ListActivities returns every activity template.
func (c *Client) ListActivities(ctx context.Context) ([]models.Activity, error) {
	body, err := c.send(ctx, call{method: "GET", endpoint: "/activities"})
	if err != nil {
		return nil, err
	}
	var activities []models.Activity
	if err := decodeList("activities", body, &activities); err != nil {
		return nil, err
	}
	for i, a := range activities {
		if err := a.Validate(); err != nil {
			return nil, malformed("activities", fmt.Errorf("item %d: %w", i, err))
		}
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}

// CreateActivity persists a new template. Tags are sent as ids.
func (c *Client) CreateActivity(ctx context.Context, in models.ActivityInput) (*models.Activity, error) {
	body, err := c.send(ctx, call{method: "POST", endpoint: "/activities", body: in.Payload()})
	if err != nil {
		return nil, err
	}
	return decodeActivity(body)
}

// UpdateActivity replaces a template's fields.
func (c *Client) UpdateActivity(ctx context.Context, id models.ID, in models.ActivityInput) (*models.Activity, error) {
	endpoint := "/activities/" + url.PathEscape(id.String())
	body, err := c.send(ctx, call{method: "PUT", endpoint: endpoint, body: in.Payload()})
	if err != nil {
		return nil, err
	}
	return decodeActivity(body)
}

// DeleteActivity deletes a template. Scheduled events are left untouched.
func (c *Client) DeleteActivity(ctx context.Context, id models.ID) error {
	_, err := c.send(ctx, call{method: "DELETE", endpoint: "/activities/" + url.PathEscape(id.String())})
	return err
}

func decodeActivity(body []byte) (*models.Activity, error) {
	var a models.Activity
	if err := decode("activity", body, &a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, malformed("activity", err)
	}
	return &a, nil
}
