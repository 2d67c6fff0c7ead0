package api

import (
	"context"
	"net/url"
)

// OsintParams creates or updates an OSINT research entry.
type OsintParams struct {
	Title   string      `json:"title,omitempty"`
	URL     string      `json:"url,omitempty"`
	Source  string      `json:"source,omitempty"`
	Summary string      `json:"summary,omitempty"`
	Tags    []string    `json:"tags,omitempty"`
	Status  OsintStatus `json:"status,omitempty"`
}

// ListOsintItems returns the OSINT entries of one project.
func (c *Client) ListOsintItems(ctx context.Context, projectID string) ([]OsintItem, error) {
	var items []OsintItem
	path := "/projects/" + url.PathEscape(projectID) + "/osint"
	if err := c.get(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateOsintItem adds an OSINT entry to a project.
func (c *Client) CreateOsintItem(ctx context.Context, projectID string, params OsintParams) (*OsintItem, error) {
	var item OsintItem
	path := "/projects/" + url.PathEscape(projectID) + "/osint"
	if err := c.post(ctx, path, params, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateOsintItem applies a partial update to an OSINT entry. Status moves
// freely between values; the backend enforces no transition order.
func (c *Client) UpdateOsintItem(ctx context.Context, projectID, itemID string, params OsintParams) (*OsintItem, error) {
	var item OsintItem
	path := "/projects/" + url.PathEscape(projectID) + "/osint/" + url.PathEscape(itemID)
	if err := c.patch(ctx, path, params, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteOsintItem removes an OSINT entry.
func (c *Client) DeleteOsintItem(ctx context.Context, projectID, itemID string) error {
	path := "/projects/" + url.PathEscape(projectID) + "/osint/" + url.PathEscape(itemID)
	return c.delete(ctx, path)
}
