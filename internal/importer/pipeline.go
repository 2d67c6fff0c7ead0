package importer

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/errors"
	"github.com/argiloff/archaeotools-cms/internal/logging"
	"github.com/argiloff/archaeotools-cms/internal/querycache"
	"github.com/argiloff/archaeotools-cms/internal/state"
)

// Stage identifies where the pipeline currently is.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageFetchingDataset  Stage = "fetching_dataset"
	StageDeletingProjects Stage = "deleting_projects"
	StageCreatingProject  Stage = "creating_project"
	StageCreatingPlaces   Stage = "creating_places"
	StageUploadingPhotos  Stage = "uploading_photos"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// Progress is a snapshot of pipeline advancement, delivered to the
// OnProgress callback on every stage change and per-item step.
type Progress struct {
	Stage         Stage
	Message       string
	PlacesDone    int
	PlacesTotal   int
	PhotosDone    int
	PhotosSkipped int
	PhotosTotal   int
}

// Options configures a pipeline run.
type Options struct {
	// DatasetURL is fetched over HTTP. Ignored when DatasetPath is set.
	DatasetURL string
	// DatasetPath reads the dataset from the local filesystem.
	DatasetPath string
	// ProjectName names the created project (default "Demo Dataset").
	ProjectName string
	// Purge deletes every existing project before importing. Off by
	// default; the import is destructive only on explicit request.
	Purge bool

	// Pacing between sequential requests.
	PlaceDelay  time.Duration
	PhotoDelay  time.Duration
	DeleteDelay time.Duration

	// Retry policy for rate-limited steps.
	RetryAttempts int
	RetryBackoff  time.Duration

	// OnProgress receives progress snapshots. Optional.
	OnProgress func(Progress)
}

func (o *Options) applyDefaults() {
	if o.ProjectName == "" {
		o.ProjectName = "Demo Dataset"
	}
	if o.PlaceDelay <= 0 {
		o.PlaceDelay = 150 * time.Millisecond
	}
	if o.PhotoDelay <= 0 {
		o.PhotoDelay = 250 * time.Millisecond
	}
	if o.DeleteDelay <= 0 {
		o.DeleteDelay = 200 * time.Millisecond
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
}

// Result summarizes a completed run.
type Result struct {
	ProjectID      string
	PlacesCreated  int
	PhotosUploaded int
	PhotosSkipped  int
}

// Pipeline imports a demo dataset as one new project. Place creation
// failures abort the run; photo failures only skip the photo. Every stage
// boundary checks for context cancellation so a run can be stopped
// cooperatively.
type Pipeline struct {
	client   *api.Client
	projects *state.ProjectStore
	cache    *querycache.Cache
	fetcher  *http.Client
	logger   *slog.Logger
	opts     Options

	mu       sync.Mutex
	stage    Stage
	progress Progress
}

// New builds a pipeline. projects and cache may be nil when the caller has
// no store to keep in sync.
func New(client *api.Client, projects *state.ProjectStore, cache *querycache.Cache, opts Options) *Pipeline {
	opts.applyDefaults()
	return &Pipeline{
		client:   client,
		projects: projects,
		cache:    cache,
		fetcher:  &http.Client{Timeout: 30 * time.Second},
		logger:   logging.ForService("importer"),
		opts:     opts,
		stage:    StageIdle,
	}
}

// Stage returns the current pipeline stage.
func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Run executes the import and returns its result. The error carries the
// failing stage in its context.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.setStage(StageFetchingDataset, "loading dataset")
	dataset, err := p.loadDataset(ctx)
	if err != nil {
		return nil, p.fail(err)
	}
	if err := p.checkpoint(ctx); err != nil {
		return nil, p.fail(err)
	}

	if p.opts.Purge {
		p.setStage(StageDeletingProjects, "deleting existing projects")
		if err := p.deleteExistingProjects(ctx); err != nil {
			return nil, p.fail(err)
		}
		if err := p.checkpoint(ctx); err != nil {
			return nil, p.fail(err)
		}
	}

	p.setStage(StageCreatingProject, "creating project "+p.opts.ProjectName)
	project, err := p.createProject(ctx)
	if err != nil {
		return nil, p.fail(err)
	}
	if err := p.checkpoint(ctx); err != nil {
		return nil, p.fail(err)
	}

	result := &Result{ProjectID: project.ID}
	p.updateProgress(func(pr *Progress) {
		pr.PlacesTotal = len(dataset.Places)
		pr.PhotosTotal = dataset.PhotoCount()
	})

	created, uploaded, skipped, err := p.importPlaces(ctx, project.ID, dataset)
	if err != nil {
		return nil, p.fail(err)
	}
	result.PlacesCreated = created
	result.PhotosUploaded = uploaded
	result.PhotosSkipped = skipped

	if p.cache != nil {
		p.cache.InvalidateScope(project.ID)
	}
	if p.projects != nil {
		p.projects.Upsert(*project)
		p.projects.SelectProject(project.ID)
	}

	p.setStage(StageDone, "import complete")
	p.logger.Info("Import finished",
		"project_id", result.ProjectID,
		"places", result.PlacesCreated,
		"photos_uploaded", result.PhotosUploaded,
		"photos_skipped", result.PhotosSkipped)
	return result, nil
}

func (p *Pipeline) loadDataset(ctx context.Context) (*Dataset, error) {
	var data []byte
	switch {
	case p.opts.DatasetPath != "":
		b, err := os.ReadFile(p.opts.DatasetPath)
		if err != nil {
			return nil, errors.Newf("failed to read dataset file: %w", err).
				Component("importer").
				Category(errors.CategoryFileIO).
				Context("path", p.opts.DatasetPath).
				Build()
		}
		data = b
	case p.opts.DatasetURL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.DatasetURL, nil)
		if err != nil {
			return nil, errors.New(err).
				Component("importer").
				Category(errors.CategoryValidation).
				Build()
		}
		resp, err := p.fetcher.Do(req)
		if err != nil {
			return nil, errors.Newf("failed to fetch dataset: %w", err).
				Component("importer").
				Category(errors.CategoryNetwork).
				Context("url", p.opts.DatasetURL).
				Build()
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Newf("dataset fetch returned status %d", resp.StatusCode).
				Component("importer").
				Category(errors.CategoryNetwork).
				Context("url", p.opts.DatasetURL).
				Build()
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.New(err).
				Component("importer").
				Category(errors.CategoryNetwork).
				Build()
		}
		data = b
	default:
		return nil, errors.Newf("no dataset source configured").
			Component("importer").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return ParseDataset(data)
}

func (p *Pipeline) deleteExistingProjects(ctx context.Context) error {
	existing, err := p.client.ListProjects(ctx)
	if err != nil {
		return err
	}
	limiter := rate.NewLimiter(rate.Every(p.opts.DeleteDelay), 1)
	for i := range existing {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		project := existing[i]
		err := p.runWithRetry(ctx, "delete project", func() error {
			return p.client.DeleteProject(ctx, project.ID)
		})
		if err != nil {
			return err
		}
		if p.projects != nil {
			p.projects.Remove(project.ID)
		}
		p.logger.Debug("Deleted project", "project_id", project.ID, "name", project.Name)
	}
	return nil
}

func (p *Pipeline) createProject(ctx context.Context) (*api.Project, error) {
	var project *api.Project
	err := p.runWithRetry(ctx, "create project", func() error {
		created, err := p.client.CreateProject(ctx, api.ProjectParams{
			Name:       p.opts.ProjectName,
			Type:       api.ProjectArchaeology,
			Visibility: api.VisibilityPrivate,
		})
		if err != nil {
			return err
		}
		project = created
		return nil
	})
	return project, err
}

// importPlaces creates places strictly in dataset order and uploads each
// place's photos right after the place exists, so an aborted run leaves
// every already-created place complete with its photos. Place creation
// failures are fatal: a half-imported project with silently missing places
// is worse than a clean abort. Photo failures only skip the photo.
func (p *Pipeline) importPlaces(ctx context.Context, projectID string, dataset *Dataset) (created, uploaded, skipped int, err error) {
	placeLimiter := rate.NewLimiter(rate.Every(p.opts.PlaceDelay), 1)
	photoLimiter := rate.NewLimiter(rate.Every(p.opts.PhotoDelay), 1)
	visited := true
	for i := range dataset.Places {
		if err := placeLimiter.Wait(ctx); err != nil {
			return created, uploaded, skipped, err
		}
		dp := &dataset.Places[i]
		p.setStage(StageCreatingPlaces, "creating place "+dp.Title)
		params := api.PlaceParams{
			Title:        dp.Title,
			Description:  dp.Description,
			Type:         dp.Type,
			Latitude:     dp.Latitude,
			Longitude:    dp.Longitude,
			Address:      dp.Address,
			City:         dp.City,
			Country:      dp.Country,
			RadiusMeters: dp.RadiusMeters,
			Tags:         dp.Tags,
			ImportSource: "demo-dataset",
		}
		if dp.Visited {
			params.Visited = &visited
		}

		var place *api.Place
		createErr := p.runWithRetry(ctx, "create place", func() error {
			got, err := p.client.CreateProjectPlace(ctx, projectID, params)
			if err != nil {
				return err
			}
			place = got
			return nil
		})
		if createErr != nil {
			return created, uploaded, skipped, errors.Newf("failed to create place %q: %w", dp.Title, createErr).
				Component("importer").
				Category(errors.CategoryImport).
				Context("place_index", i).
				Build()
		}
		created++
		p.updateProgress(func(pr *Progress) { pr.PlacesDone++ })

		if len(dp.Photos) == 0 {
			continue
		}
		p.setStage(StageUploadingPhotos, "uploading photos for "+dp.Title)
		up, sk, photoErr := p.uploadPlacePhotos(ctx, projectID, place.ID, dp.Photos, photoLimiter)
		uploaded += up
		skipped += sk
		if photoErr != nil {
			return created, uploaded, skipped, photoErr
		}
	}
	return created, uploaded, skipped, nil
}

// uploadPlacePhotos fetches and re-uploads one place's photo references.
// Failures skip the single photo; only cancellation stops the run.
func (p *Pipeline) uploadPlacePhotos(ctx context.Context, projectID, placeID string, photos []DemoPhoto, limiter *rate.Limiter) (uploaded, skipped int, err error) {
	for _, photo := range photos {
		if err := limiter.Wait(ctx); err != nil {
			return uploaded, skipped, err
		}

		data, contentType, ok := p.fetchPhoto(ctx, photo.URL)
		if !ok {
			skipped++
			p.updateProgress(func(pr *Progress) { pr.PhotosSkipped++ })
			continue
		}

		_, uploadErr := p.client.UploadPhoto(ctx, projectID, api.UploadFile{
			Name:        path.Base(photo.URL),
			ContentType: contentType,
			Data:        data,
		}, api.PhotoParams{
			PlaceID:     &placeID,
			Description: photo.Description,
			Tags:        photo.Tags,
		})
		if uploadErr != nil {
			if ctx.Err() != nil {
				return uploaded, skipped, ctx.Err()
			}
			p.logger.Warn("Photo upload failed, skipping",
				"url", photo.URL, "place_id", placeID, "error", uploadErr)
			skipped++
			p.updateProgress(func(pr *Progress) { pr.PhotosSkipped++ })
			continue
		}
		uploaded++
		p.updateProgress(func(pr *Progress) { pr.PhotosDone++ })
	}
	return uploaded, skipped, nil
}

// fetchPhoto downloads photo bytes from the dataset source. Any failure,
// including a non-2xx status, skips the photo without noise beyond a
// debug line.
func (p *Pipeline) fetchPhoto(ctx context.Context, photoURL string) ([]byte, string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		p.logger.Debug("Invalid photo URL, skipping", "url", photoURL, "error", err)
		return nil, "", false
	}
	resp, err := p.fetcher.Do(req)
	if err != nil {
		p.logger.Debug("Photo fetch failed, skipping", "url", photoURL, "error", err)
		return nil, "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Debug("Photo fetch returned non-2xx, skipping",
			"url", photoURL, "status", resp.StatusCode)
		return nil, "", false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Debug("Photo read failed, skipping", "url", photoURL, "error", err)
		return nil, "", false
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, parseErr := mime.ParseMediaType(contentType); parseErr == nil {
		contentType = mediaType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, true
}

// runWithRetry retries fn on backend rate limiting with linear backoff.
// Other errors fail immediately.
func (p *Pipeline) runWithRetry(ctx context.Context, name string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.opts.RetryAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !api.IsStatus(lastErr, http.StatusTooManyRequests) || attempt == p.opts.RetryAttempts {
			return lastErr
		}
		wait := time.Duration(attempt) * p.opts.RetryBackoff
		p.logger.Warn("Step rate limited, backing off",
			"step", name, "attempt", attempt, "delay_ms", wait.Milliseconds())
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (p *Pipeline) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New(err).
			Component("importer").
			Category(errors.CategoryCancellation).
			Context("stage", string(p.Stage())).
			Build()
	}
	return nil
}

func (p *Pipeline) fail(err error) error {
	p.setStage(StageFailed, err.Error())
	return err
}

func (p *Pipeline) setStage(stage Stage, message string) {
	p.mu.Lock()
	p.stage = stage
	p.progress.Stage = stage
	p.progress.Message = message
	snapshot := p.progress
	p.mu.Unlock()
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(snapshot)
	}
}

func (p *Pipeline) updateProgress(apply func(*Progress)) {
	p.mu.Lock()
	apply(&p.progress)
	snapshot := p.progress
	p.mu.Unlock()
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(snapshot)
	}
}
