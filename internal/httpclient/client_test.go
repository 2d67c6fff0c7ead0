package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argiloff/archaeotools-cms/internal/session"
)

const (
	testAPIBase    = "https://api.example.org"
	testRefreshURL = testAPIBase + "/auth/refresh"
)

func newTestClient(t *testing.T, store *session.Store) *Client {
	t.Helper()
	c := New(&Config{
		RefreshURL:       testRefreshURL,
		RateRetryBackoff: 5 * time.Millisecond,
	}, store)
	httpmock.ActivateNonDefault(c.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func mustDo(t *testing.T, c *Client, method, url string) *http.Response {
	t.Helper()
	resp, err := c.Do(context.Background(), method, url, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { drain(resp) })
	return resp
}

func TestBearerInjection(t *testing.T) {
	store := session.New("")
	store.SetTokens("token-abc", "refresh-abc")
	c := newTestClient(t, store)

	var gotAuth string
	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/projects",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			return httpmock.NewStringResponse(http.StatusOK, `[]`), nil
		})

	resp := mustDo(t, c, http.MethodGet, testAPIBase+"/projects")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer token-abc", gotAuth)
}

func TestNoAuthorizationHeaderWhenSignedOut(t *testing.T) {
	store := session.New("")
	c := newTestClient(t, store)

	var gotAuth string
	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/projects",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			return httpmock.NewStringResponse(http.StatusOK, `[]`), nil
		})

	mustDo(t, c, http.MethodGet, testAPIBase+"/projects")
	assert.Empty(t, gotAuth)
}

func TestRefreshOnUnauthorized(t *testing.T) {
	store := session.New("")
	store.SetTokens("stale", "refresh-1")
	c := newTestClient(t, store)

	var refreshCalls, projectCalls int32
	httpmock.RegisterResponder(http.MethodPost, testRefreshURL,
		func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&refreshCalls, 1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "refresh-1", body["refreshToken"])
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{
				"accessToken":  "fresh",
				"refreshToken": "refresh-2",
			})
		})
	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/users/me",
		func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&projectCalls, 1)
			if req.Header.Get("Authorization") != "Bearer fresh" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{"message":"unauthorized"}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"id":"u1"}`), nil
		})

	resp := mustDo(t, c, http.MethodGet, testAPIBase+"/users/me")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), refreshCalls)
	assert.Equal(t, int32(2), projectCalls)
	// Token pair was rotated in the session store
	assert.Equal(t, "fresh", store.AccessToken())
	assert.Equal(t, "refresh-2", store.RefreshToken())
}

func TestRefreshFailureClearsSession(t *testing.T) {
	store := session.New("")
	store.SetSession("stale", "refresh-1", &session.User{ID: "u1"})
	c := newTestClient(t, store)

	httpmock.RegisterResponder(http.MethodPost, testRefreshURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"refresh token expired"}`))
	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/users/me",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"unauthorized"}`))

	resp := mustDo(t, c, http.MethodGet, testAPIBase+"/users/me")

	// Caller sees the original 401, session is gone
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, store.Snapshot().Authenticated())
	assert.Nil(t, store.User())
}

func TestRefreshHappensOncePerRequest(t *testing.T) {
	store := session.New("")
	store.SetTokens("stale", "refresh-1")
	c := newTestClient(t, store)

	var refreshCalls int32
	httpmock.RegisterResponder(http.MethodPost, testRefreshURL,
		func(*http.Request) (*http.Response, error) {
			atomic.AddInt32(&refreshCalls, 1)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{
				"accessToken":  "still-rejected",
				"refreshToken": "refresh-2",
			})
		})
	// Backend keeps rejecting even the refreshed token
	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/users/me",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"unauthorized"}`))

	resp := mustDo(t, c, http.MethodGet, testAPIBase+"/users/me")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), refreshCalls)
}

func TestRateLimitRetries(t *testing.T) {
	store := session.New("")
	c := newTestClient(t, store)

	var calls int32
	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/places",
		func(*http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) <= 2 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests, ``), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `[]`), nil
		})

	resp := mustDo(t, c, http.MethodGet, testAPIBase+"/places")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls)
	assert.Equal(t, int64(2), c.GetMetrics().RateRetries)
}

func TestRateLimitExhaustion(t *testing.T) {
	store := session.New("")
	c := newTestClient(t, store)

	var calls int32
	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/places",
		func(*http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return httpmock.NewStringResponse(http.StatusTooManyRequests, ``), nil
		})

	resp := mustDo(t, c, http.MethodGet, testAPIBase+"/places")

	// Initial attempt plus 3 retries, then the 429 is surfaced
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(4), calls)
}

func TestRateLimitBackoffIsLinear(t *testing.T) {
	store := session.New("")
	c := New(&Config{
		RefreshURL:       testRefreshURL,
		RateRetryBackoff: 20 * time.Millisecond,
	}, store)
	httpmock.ActivateNonDefault(c.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/places",
		httpmock.NewStringResponder(http.StatusTooManyRequests, ``))

	start := time.Now()
	resp, err := c.Do(context.Background(), http.MethodGet, testAPIBase+"/places", nil, nil)
	require.NoError(t, err)
	drain(resp)

	// Waits are 1x + 2x + 3x the backoff unit
	assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
}

func TestBodyReplayedOnRetry(t *testing.T) {
	store := session.New("")
	c := newTestClient(t, store)

	var bodies []string
	httpmock.RegisterResponder(http.MethodPost, testAPIBase+"/projects",
		func(req *http.Request) (*http.Response, error) {
			buf, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			bodies = append(bodies, string(buf))
			if len(bodies) == 1 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests, ``), nil
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"p1"}`), nil
		})

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	resp, err := c.Do(context.Background(), http.MethodPost, testAPIBase+"/projects",
		[]byte(`{"name":"dig"}`), header)
	require.NoError(t, err)
	drain(resp)

	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
}

func TestContextCancellationDuringBackoff(t *testing.T) {
	store := session.New("")
	c := New(&Config{
		RefreshURL:       testRefreshURL,
		RateRetryBackoff: 10 * time.Second,
	}, store)
	httpmock.ActivateNonDefault(c.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, testAPIBase+"/places",
		httpmock.NewStringResponder(http.StatusTooManyRequests, ``))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Do(ctx, http.MethodGet, testAPIBase+"/places", nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}
