package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/argiloff/archaeotools-cms/internal/errors"
)

// PhotoParams creates or updates a photo record.
type PhotoParams struct {
	URL         string         `json:"url,omitempty"`
	StorageKey  string         `json:"storageKey,omitempty"`
	PlaceID     *string        `json:"placeId,omitempty"`
	Description string         `json:"description,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	CapturedAt  *time.Time     `json:"capturedAt,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UploadTicket is a presigned upload grant from the backend.
type UploadTicket struct {
	// UploadURL is where the file bytes go, via direct PUT.
	UploadURL string `json:"uploadUrl"`
	// FileURL is the public URL of the object once uploaded. May be
	// relative or double-encoded depending on the storage backend.
	FileURL string `json:"fileUrl"`
	// Key is the object-storage key.
	Key string `json:"key"`
}

// UploadFile is a file to push to object storage.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ListPhotos returns the photos of one project.
func (c *Client) ListPhotos(ctx context.Context, projectID string) ([]Photo, error) {
	var photos []Photo
	path := "/projects/" + url.PathEscape(projectID) + "/photos"
	if err := c.get(ctx, path, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// CreatePhoto registers an already-uploaded file as a project photo.
func (c *Client) CreatePhoto(ctx context.Context, projectID string, params PhotoParams) (*Photo, error) {
	var photo Photo
	path := "/projects/" + url.PathEscape(projectID) + "/photos"
	if err := c.post(ctx, path, params, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// UpdatePhoto applies a partial update to a photo.
func (c *Client) UpdatePhoto(ctx context.Context, projectID, photoID string, params PhotoParams) (*Photo, error) {
	var photo Photo
	path := "/projects/" + url.PathEscape(projectID) + "/photos/" + url.PathEscape(photoID)
	if err := c.patch(ctx, path, params, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// DeletePhoto removes a photo record and its stored object.
func (c *Client) DeletePhoto(ctx context.Context, projectID, photoID string) error {
	path := "/projects/" + url.PathEscape(projectID) + "/photos/" + url.PathEscape(photoID)
	return c.delete(ctx, path)
}

// CreateUploadURL asks the backend for a presigned upload slot.
func (c *Client) CreateUploadURL(ctx context.Context, projectID, filename, contentType string, size int64) (*UploadTicket, error) {
	in := struct {
		Filename      string `json:"filename"`
		ContentType   string `json:"contentType"`
		ContentLength int64  `json:"contentLength"`
	}{Filename: filename, ContentType: contentType, ContentLength: size}
	var ticket UploadTicket
	path := "/projects/" + url.PathEscape(projectID) + "/photos/upload-url"
	if err := c.post(ctx, path, in, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// PutObject uploads bytes directly to a presigned URL. The request goes
// through the plain uploader client so no bearer token corrupts the
// signature.
func (c *Client) PutObject(ctx context.Context, uploadURL, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(data))

	resp, err := c.uploader.Do(req)
	if err != nil {
		return errors.Newf("object upload failed: %w", err).
			Component("api").
			Category(errors.CategoryNetwork).
			Build()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return &Error{StatusCode: resp.StatusCode, Message: "object storage rejected upload"}
	}
	return nil
}

// UploadPhoto runs the full upload flow: request a presigned slot, PUT the
// bytes, then register the photo record. The stored URL is resolved to an
// absolute form before registration so the record never points at a
// container-internal host.
func (c *Client) UploadPhoto(ctx context.Context, projectID string, file UploadFile, params PhotoParams) (*Photo, error) {
	name := file.Name
	if name == "" {
		name = fmt.Sprintf("upload-%s", uuid.NewString())
	} else {
		// De-duplicate on the storage side while keeping the extension.
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(filepath.Base(name), ext), uuid.NewString(), ext)
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ticket, err := c.CreateUploadURL(ctx, projectID, name, contentType, int64(len(file.Data)))
	if err != nil {
		return nil, err
	}
	if err := c.PutObject(ctx, ticket.UploadURL, contentType, file.Data); err != nil {
		return nil, err
	}

	publicURL, ok := EnsureAbsoluteURL(ticket.FileURL, c.storageBaseURL)
	if !ok {
		publicURL = PublicURLFromKey(c.storageBaseURL, ticket.Key)
	}
	params.URL = publicURL
	params.StorageKey = ticket.Key
	return c.CreatePhoto(ctx, projectID, params)
}
