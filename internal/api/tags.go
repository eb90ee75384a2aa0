package api

import (
	"context"
	"fmt"

	"github.com/kutbudev/agenda-cli/internal/models"
)

func validTag(t models.Tag) error {
	if t.ID <= 0 {
		return fmt.Errorf("tag id must be positive, got %d", t.ID)
	}
	return t.Validate()
}

// ListTags returns the tag catalog.
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	body, err := c.send(ctx, call{method: "GET", endpoint: "/tags"})
	if err != nil {
		return nil, err
	}
	var tags []models.Tag
	if err := decodeList("tags", body, &tags); err != nil {
		return nil, err
	}
	for i, t := range tags {
		if err := validTag(t); err != nil {
			return nil, malformed("tags", fmt.Errorf("item %d: %w", i, err))
		}
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// CreateTag creates a tag and returns the stored record.
func (c *Client) CreateTag(ctx context.Context, in models.TagInput) (*models.Tag, error) {
	body, err := c.send(ctx, call{method: "POST", endpoint: "/tags", body: in})
	if err != nil {
		return nil, err
	}
	return decodeTag(body)
}

// UpdateTag renames or recolours a tag.
func (c *Client) UpdateTag(ctx context.Context, id int, in models.TagInput) (*models.Tag, error) {
	body, err := c.send(ctx, call{method: "PUT", endpoint: fmt.Sprintf("/tags/%d", id), body: in})
	if err != nil {
		return nil, err
	}
	return decodeTag(body)
}

// DeleteTag deletes a tag. The server does not cascade to activities.
func (c *Client) DeleteTag(ctx context.Context, id int) error {
	_, err := c.send(ctx, call{method: "DELETE", endpoint: fmt.Sprintf("/tags/%d", id)})
	return err
}

func decodeTag(body []byte) (*models.Tag, error) {
	var t models.Tag
	if err := decode("tag", body, &t); err != nil {
		return nil, err
	}
	if err := validTag(t); err != nil {
		return nil, malformed("tag", err)
	}
	return &t, nil
}
