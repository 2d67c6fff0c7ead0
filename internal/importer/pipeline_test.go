package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/httpclient"
	"github.com/argiloff/archaeotools-cms/internal/querycache"
	"github.com/argiloff/archaeotools-cms/internal/session"
	"github.com/argiloff/archaeotools-cms/internal/state"
)

const (
	testBase    = "https://api.example.org"
	datasetBase = "https://datasets.example.org"
)

func fastOptions() Options {
	return Options{
		DatasetURL:    datasetBase + "/demo.json",
		PlaceDelay:    time.Millisecond,
		PhotoDelay:    time.Millisecond,
		DeleteDelay:   time.Millisecond,
		RetryAttempts: 3,
		RetryBackoff:  5 * time.Millisecond,
	}
}

// newTestPipeline wires a pipeline whose API transport, upload client and
// dataset fetcher are all intercepted by httpmock.
func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *state.ProjectStore) {
	t.Helper()
	store := session.New("")
	store.SetTokens("access-token", "refresh-token")

	hc := httpclient.New(&httpclient.Config{
		RefreshURL:       testBase + "/auth/refresh",
		RateRetryBackoff: time.Millisecond,
	}, store)
	httpmock.ActivateNonDefault(hc.StandardClient())

	client, err := api.New(api.Config{
		BaseURL:        testBase,
		StorageBaseURL: "https://storage.example.org",
		HTTP:           hc,
	})
	require.NoError(t, err)
	httpmock.ActivateNonDefault(client.UploadClient())

	projects := state.NewProjectStore()
	pipeline := New(client, projects, querycache.New(time.Minute), opts)
	httpmock.ActivateNonDefault(pipeline.fetcher)

	t.Cleanup(httpmock.DeactivateAndReset)
	return pipeline, projects
}

func registerProjectCreation(t *testing.T, projectID string) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects",
		httpmock.NewStringResponder(http.StatusCreated,
			`{"id":"`+projectID+`","name":"Demo Dataset","type":"ARCHAEOLOGY","visibility":"PRIVATE"}`))
}

func registerPlaceCreation(t *testing.T, projectID string) {
	t.Helper()
	counter := 0
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects/"+projectID+"/places",
		func(req *http.Request) (*http.Response, error) {
			counter++
			return httpmock.NewJsonResponse(http.StatusCreated, map[string]any{
				"id":        "pl" + string(rune('0'+counter)),
				"projectId": projectID,
				"title":     "created",
			})
		})
}

func registerUploadFlow(t *testing.T, projectID string) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects/"+projectID+"/photos/upload-url",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{
			"uploadUrl": "https://storage.example.org/up/obj",
			"fileUrl":   "https://storage.example.org/obj",
			"key":       "obj",
		}))
	httpmock.RegisterResponder(http.MethodPut, "https://storage.example.org/up/obj",
		httpmock.NewStringResponder(http.StatusOK, ""))
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects/"+projectID+"/photos",
		httpmock.NewStringResponder(http.StatusCreated, `{"id":"ph1","projectId":"`+projectID+`","url":"https://storage.example.org/obj"}`))
}

func TestRunImportsDatasetWithPartialPhotoFailure(t *testing.T) {
	pipeline, projects := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK, `{
			"name": "Demo",
			"places": [
				{"title": "Roman Villa", "type": "ARCHAEOLOGICAL_SITE", "latitude": 48.1, "longitude": 11.5,
				 "photos": [{"imageUrl": "https://datasets.example.org/a.jpg"}, {"imageUrl": "https://datasets.example.org/missing.jpg"}]},
				{"title": "City Museum", "type": "MUSEUM", "latitude": 48.2, "longitude": 11.6},
				{"name": "Legacy Fort", "lat": 48.3, "lng": 11.7, "type": "FORTIFICATION"}
			]
		}`))
	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/a.jpg",
		httpmock.NewBytesResponder(http.StatusOK, []byte("jpeg-bytes")))
	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/missing.jpg",
		httpmock.NewStringResponder(http.StatusNotFound, "gone"))

	registerProjectCreation(t, "p-demo")
	registerPlaceCreation(t, "p-demo")
	registerUploadFlow(t, "p-demo")

	var stages []Stage
	pipeline.opts.OnProgress = func(pr Progress) {
		if len(stages) == 0 || stages[len(stages)-1] != pr.Stage {
			stages = append(stages, pr.Stage)
		}
	}

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p-demo", result.ProjectID)
	assert.Equal(t, 3, result.PlacesCreated)
	assert.Equal(t, 1, result.PhotosUploaded)
	assert.Equal(t, 1, result.PhotosSkipped)
	assert.Equal(t, StageDone, pipeline.Stage())

	// No purge flag, so nothing was listed or deleted.
	info := httpmock.GetCallCountInfo()
	assert.Zero(t, info["GET "+testBase+"/projects"])
	assert.Contains(t, stages, StageCreatingPlaces)
	assert.Contains(t, stages, StageUploadingPhotos)
	assert.NotContains(t, stages, StageDeletingProjects)

	// The new project became the current selection.
	assert.Equal(t, "p-demo", projects.CurrentProjectID())
}

func TestRunUploadsPhotosAfterEachPlace(t *testing.T) {
	pipeline, _ := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK, `{
			"places": [
				{"title": "First", "latitude": 1, "longitude": 2,
				 "photos": [{"imageUrl": "https://datasets.example.org/first.jpg"}]},
				{"title": "Second", "latitude": 3, "longitude": 4,
				 "photos": [{"imageUrl": "https://datasets.example.org/second.jpg"}]}
			]
		}`))
	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/first.jpg",
		httpmock.NewBytesResponder(http.StatusOK, []byte("one")))
	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/second.jpg",
		httpmock.NewBytesResponder(http.StatusOK, []byte("two")))
	registerProjectCreation(t, "p-seq")
	registerUploadFlow(t, "p-seq")

	var order []string
	placeCount := 0
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects/p-seq/places",
		func(req *http.Request) (*http.Response, error) {
			placeCount++
			order = append(order, fmt.Sprintf("place-%d", placeCount))
			return httpmock.NewJsonResponse(http.StatusCreated, map[string]any{
				"id": fmt.Sprintf("pl%d", placeCount), "projectId": "p-seq", "title": "created",
			})
		})
	photoCount := 0
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects/p-seq/photos",
		func(req *http.Request) (*http.Response, error) {
			photoCount++
			order = append(order, fmt.Sprintf("photo-%d", photoCount))
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"ph","projectId":"p-seq"}`), nil
		})

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.PlacesCreated)
	assert.Equal(t, 2, result.PhotosUploaded)

	// Each place's photos go up before the next place is created.
	assert.Equal(t, []string{"place-1", "photo-1", "place-2", "photo-2"}, order)
}

func TestRunForwardsPlaceRadius(t *testing.T) {
	pipeline, _ := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK,
			`{"places":[{"title":"Ringfort","latitude":1,"longitude":2,"radiusMeters":75}]}`))
	registerProjectCreation(t, "p-radius")

	var got api.PlaceParams
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects/p-radius/places",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusCreated,
				`{"id":"pl1","projectId":"p-radius","title":"Ringfort"}`), nil
		})

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 75, got.RadiusMeters, 1e-9)
}

func TestRunPurgeDeletesExistingProjectsFirst(t *testing.T) {
	opts := fastOptions()
	opts.Purge = true
	pipeline, _ := newTestPipeline(t, opts)

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK, `{"places":[{"title":"Only","latitude":1,"longitude":2}]}`))
	httpmock.RegisterResponder(http.MethodGet, testBase+"/projects",
		httpmock.NewStringResponder(http.StatusOK, `[{"id":"old1","name":"Old 1"},{"id":"old2","name":"Old 2"}]`))
	httpmock.RegisterResponder(http.MethodDelete, testBase+"/projects/old1",
		httpmock.NewStringResponder(http.StatusNoContent, ""))
	httpmock.RegisterResponder(http.MethodDelete, testBase+"/projects/old2",
		httpmock.NewStringResponder(http.StatusNoContent, ""))
	registerProjectCreation(t, "p-new")
	registerPlaceCreation(t, "p-new")

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PlacesCreated)

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["DELETE "+testBase+"/projects/old1"])
	assert.Equal(t, 1, info["DELETE "+testBase+"/projects/old2"])
}

func TestRunEmptyDatasetCreatesProjectOnly(t *testing.T) {
	pipeline, _ := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK, `{"places":[]}`))
	registerProjectCreation(t, "p-empty")

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.PlacesCreated)
	assert.Zero(t, result.PhotosUploaded)
	assert.Equal(t, StageDone, pipeline.Stage())
}

func TestRunRejectsDatasetWithoutPlacesArray(t *testing.T) {
	pipeline, _ := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK, `{"name":"no places here"}`))

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "places")
	assert.Equal(t, StageFailed, pipeline.Stage())
}

func TestRunRetriesRateLimitedProjectCreation(t *testing.T) {
	pipeline, _ := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK, `{"places":[]}`))

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests, `{"message":"slow down"}`), nil
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"p-retry","name":"Demo Dataset"}`), nil
		})

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p-retry", result.ProjectID)
	// The transport's own 429 retries run before the pipeline's, so the
	// second attempt already came from the inner policy.
	assert.GreaterOrEqual(t, calls, 2)
}

func TestRunPlaceCreationFailureIsFatal(t *testing.T) {
	pipeline, _ := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK,
			`{"places":[{"title":"Broken","latitude":1,"longitude":2}]}`))
	registerProjectCreation(t, "p-fatal")
	httpmock.RegisterResponder(http.MethodPost, testBase+"/projects/p-fatal/places",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"message":"boom"}`))

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
	assert.Equal(t, StageFailed, pipeline.Stage())
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	pipeline, _ := newTestPipeline(t, fastOptions())

	httpmock.RegisterResponder(http.MethodGet, datasetBase+"/demo.json",
		httpmock.NewStringResponder(http.StatusOK, `{"places":[]}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StageFailed, pipeline.Stage())
}
