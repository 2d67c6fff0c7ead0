package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/argiloff/archaeotools-cms/internal/errors"
)

// PlaceParams creates or updates a place. Pointer fields distinguish
// "unset" from zero values.
type PlaceParams struct {
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	Type         PlaceType      `json:"type,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	RadiusMeters float64        `json:"radiusMeters,omitempty"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city,omitempty"`
	Country      string         `json:"country,omitempty"`
	Visited      *bool          `json:"visited,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ImportSource string         `json:"importSource,omitempty"`
	ProjectID    *string        `json:"projectId,omitempty"`
}

// ListPlacesOptions filters ListAllPlaces.
type ListPlacesOptions struct {
	// UnassignedOnly keeps only places with no project.
	UnassignedOnly bool
}

// ListProjectPlaces returns the places of one project.
func (c *Client) ListProjectPlaces(ctx context.Context, projectID string) ([]Place, error) {
	var places []Place
	path := "/projects/" + url.PathEscape(projectID) + "/places"
	if err := c.get(ctx, path, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// ListAllPlaces returns every place of the signed-in user across projects,
// including global unassigned places.
func (c *Client) ListAllPlaces(ctx context.Context, opts ListPlacesOptions) ([]Place, error) {
	path := "/places"
	if opts.UnassignedOnly {
		path += "?unassignedOnly=true"
	}
	var places []Place
	if err := c.get(ctx, path, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// CreatePlace creates a place. With ProjectID unset in params the place is
// created as global/unassigned.
func (c *Client) CreatePlace(ctx context.Context, params PlaceParams) (*Place, error) {
	var place Place
	if err := c.post(ctx, "/places", params, &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// CreateProjectPlace creates a place inside a project.
func (c *Client) CreateProjectPlace(ctx context.Context, projectID string, params PlaceParams) (*Place, error) {
	var place Place
	path := "/projects/" + url.PathEscape(projectID) + "/places"
	if err := c.post(ctx, path, params, &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// UpdateProjectPlace applies a partial update to a place within a project.
func (c *Client) UpdateProjectPlace(ctx context.Context, projectID, placeID string, params PlaceParams) (*Place, error) {
	var place Place
	path := "/projects/" + url.PathEscape(projectID) + "/places/" + url.PathEscape(placeID)
	if err := c.patch(ctx, path, params, &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// DeleteProjectPlace deletes a place from a project.
func (c *Client) DeleteProjectPlace(ctx context.Context, projectID, placeID string) error {
	path := "/projects/" + url.PathEscape(projectID) + "/places/" + url.PathEscape(placeID)
	return c.delete(ctx, path)
}

// DeletePlace deletes a global place by ID.
func (c *Client) DeletePlace(ctx context.Context, placeID string) error {
	return c.delete(ctx, "/places/"+url.PathEscape(placeID))
}

// AssignPlaceToProject moves an unassigned place into a project.
func (c *Client) AssignPlaceToProject(ctx context.Context, placeID, projectID string) (*Place, error) {
	var place Place
	path := "/places/" + url.PathEscape(placeID) + "/assign"
	in := map[string]string{"projectId": projectID}
	if err := c.post(ctx, path, in, &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// UnassignPlace detaches a place from its project, making it global again.
func (c *Client) UnassignPlace(ctx context.Context, placeID string) (*Place, error) {
	var place Place
	path := "/places/" + url.PathEscape(placeID) + "/unassign"
	if err := c.post(ctx, path, nil, &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// BulkAssignPlaces assigns several places to one project in a single call.
func (c *Client) BulkAssignPlaces(ctx context.Context, placeIDs []string, projectID string) error {
	in := struct {
		PlaceIDs  []string `json:"placeIds"`
		ProjectID string   `json:"projectId"`
	}{PlaceIDs: placeIDs, ProjectID: projectID}
	return c.post(ctx, "/places/bulk-assign", in, nil)
}

// ImportPlacesFile uploads a places file (JSON or GeoJSON) for server-side
// import and returns the created places.
func (c *Client) ImportPlacesFile(ctx context.Context, filename string, file io.Reader) ([]Place, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Build()
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, errors.Newf("failed to read import file %s: %w", filename, err).
			Component("api").
			Category(errors.CategoryFileIO).
			Build()
	}
	if err := writer.Close(); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Build()
	}

	header := http.Header{}
	header.Set("Content-Type", writer.FormDataContentType())
	header.Set("Accept", "application/json")
	resp, err := c.http.Do(ctx, http.MethodPost, c.url("/places/import"), buf.Bytes(), header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Build()
	}
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp.StatusCode, data)
	}
	var places []Place
	if err := unmarshalBody(data, &places); err != nil {
		return nil, err
	}
	return places, nil
}
