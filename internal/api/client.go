// Package api is the typed client for the ArchaeoTools backend REST API.
// It layers resource services (auth, projects, places, photos, osint,
// cache) over the retrying HTTP transport in internal/httpclient.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/argiloff/archaeotools-cms/internal/errors"
	"github.com/argiloff/archaeotools-cms/internal/httpclient"
	"github.com/argiloff/archaeotools-cms/internal/logging"
)

// Config carries the client wiring.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// StorageBaseURL is the public object-storage root used to resolve
	// relative photo URLs. Optional.
	StorageBaseURL string
	// HTTP is the authenticated transport. Required.
	HTTP *httpclient.Client
	// UploadTimeout bounds direct PUT uploads to presigned URLs.
	// Defaults to 2 minutes.
	UploadTimeout time.Duration
}

// Client talks to the backend. All methods honor context cancellation and
// return *Error for backend rejections.
type Client struct {
	http           *httpclient.Client
	baseURL        string
	storageBaseURL string
	// uploader bypasses the authenticated transport: presigned PUTs must
	// not carry a bearer token or the storage backend rejects the
	// signature.
	uploader *http.Client
	logger   *slog.Logger
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.HTTP == nil {
		return nil, errors.Newf("api client requires an HTTP transport").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.BaseURL == "" {
		return nil, errors.Newf("api client requires a base URL").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 2 * time.Minute
	}
	return &Client{
		http:           cfg.HTTP,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		storageBaseURL: strings.TrimRight(cfg.StorageBaseURL, "/"),
		uploader:       &http.Client{Timeout: uploadTimeout},
		logger:         logging.ForService("api"),
	}, nil
}

// UploadClient exposes the plain client used for presigned PUTs so tests
// can intercept it.
func (c *Client) UploadClient() *http.Client {
	return c.uploader
}

// StorageBaseURL returns the configured public storage root.
func (c *Client) StorageBaseURL() string {
	return c.storageBaseURL
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// doJSON performs one API call. A non-nil in is sent as a JSON body, a
// non-nil out receives the decoded response. Backend rejections come back
// as *Error; only transport failures produce other error kinds.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	header := http.Header{}
	header.Set("Accept", "application/json")
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Newf("failed to encode %s %s request: %w", method, path, err).
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
		body = b
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, method, c.url(path), body, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Newf("failed to read %s %s response: %w", method, path, err).
			Component("api").
			Category(errors.CategoryNetwork).
			Build()
	}
	if resp.StatusCode >= 400 {
		c.logger.Debug("Backend rejected request",
			"method", method, "path", path, "status", resp.StatusCode)
		return decodeError(resp.StatusCode, data)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Newf("failed to decode %s %s response: %w", method, path, err).
				Component("api").
				Category(errors.CategoryFileParsing).
				Context("status", resp.StatusCode).
				Build()
		}
	}
	return nil
}

func unmarshalBody(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Newf("failed to decode response: %w", err).
			Component("api").
			Category(errors.CategoryFileParsing).
			Build()
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) patch(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}
