package api

import (
	"context"
	"net/url"
)

// ProjectParams creates or updates a project. Zero-valued fields are
// omitted from the request.
type ProjectParams struct {
	Name        string      `json:"name,omitempty"`
	Type        ProjectType `json:"type,omitempty"`
	Visibility  Visibility  `json:"visibility,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
}

// ListProjects returns every project visible to the signed-in user.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches one project by ID.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := c.get(ctx, "/projects/"+url.PathEscape(projectID), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, params ProjectParams) (*Project, error) {
	var project Project
	if err := c.post(ctx, "/projects", params, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject applies a partial update to a project.
func (c *Client) UpdateProject(ctx context.Context, projectID string, params ProjectParams) (*Project, error) {
	var project Project
	if err := c.patch(ctx, "/projects/"+url.PathEscape(projectID), params, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject deletes a project and everything under it.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.delete(ctx, "/projects/"+url.PathEscape(projectID))
}
