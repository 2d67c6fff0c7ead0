package api

import (
	"context"
	"net/url"
)

// GetCacheMetrics fetches backend cache health. Deployments without the
// cache module answer 404; that comes back as empty metrics, not an error.
func (c *Client) GetCacheMetrics(ctx context.Context) (*CacheMetrics, error) {
	var metrics CacheMetrics
	if err := c.get(ctx, "/cache/metrics", &metrics); err != nil {
		if IsNotFound(err) {
			return &CacheMetrics{}, nil
		}
		return nil, err
	}
	return &metrics, nil
}

// InvalidateProjectCache drops the backend cache entries of one project.
func (c *Client) InvalidateProjectCache(ctx context.Context, projectID string) error {
	path := "/cache/projects/" + url.PathEscape(projectID) + "/invalidate"
	return c.post(ctx, path, nil, nil)
}

// RecomputeProjectSummary forces the backend to rebuild a project's
// aggregate summary.
func (c *Client) RecomputeProjectSummary(ctx context.Context, projectID string) error {
	path := "/cache/projects/" + url.PathEscape(projectID) + "/recompute-summary"
	return c.post(ctx, path, nil, nil)
}
