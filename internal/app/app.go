// Package app wires the CLI's long-lived objects: configuration, session
// store, authenticated HTTP transport, API client, project store and query
// cache. Commands receive one *App instead of assembling these themselves.
package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/conf"
	"github.com/argiloff/archaeotools-cms/internal/errors"
	"github.com/argiloff/archaeotools-cms/internal/httpclient"
	"github.com/argiloff/archaeotools-cms/internal/querycache"
	"github.com/argiloff/archaeotools-cms/internal/session"
	"github.com/argiloff/archaeotools-cms/internal/state"
)

// App holds the wired application objects.
type App struct {
	Settings *conf.Settings
	Session  *session.Store
	HTTP     *httpclient.Client
	API      *api.Client
	Projects *state.ProjectStore
	Cache    *querycache.Cache

	statePath string
}

// New builds the application from settings.
func New(settings *conf.Settings) (*App, error) {
	sess := session.New(settings.Session.Path)

	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout:   settings.API.Timeout,
		RefreshURL:       settings.API.BaseURL + "/auth/refresh",
		MaxRateRetries:   settings.API.RetryMax,
		RateRetryBackoff: settings.API.RetryBackoff,
	}, sess)

	client, err := api.New(api.Config{
		BaseURL:        settings.API.BaseURL,
		StorageBaseURL: settings.API.StorageBaseURL,
		HTTP:           hc,
	})
	if err != nil {
		return nil, err
	}

	statePath := ""
	if settings.Session.Path != "" {
		statePath = filepath.Join(filepath.Dir(settings.Session.Path), "state.json")
	}

	return &App{
		Settings:  settings,
		Session:   sess,
		HTTP:      hc,
		API:       client,
		Projects:  state.NewProjectStore(),
		Cache:     querycache.New(0),
		statePath: statePath,
	}, nil
}

// Reconfigure rebuilds the transport and API client from the current
// settings. Called after flag parsing so command line overrides of the API
// URL take effect.
func (a *App) Reconfigure() error {
	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout:   a.Settings.API.Timeout,
		RefreshURL:       a.Settings.API.BaseURL + "/auth/refresh",
		MaxRateRetries:   a.Settings.API.RetryMax,
		RateRetryBackoff: a.Settings.API.RetryBackoff,
	}, a.Session)

	client, err := api.New(api.Config{
		BaseURL:        a.Settings.API.BaseURL,
		StorageBaseURL: a.Settings.API.StorageBaseURL,
		HTTP:           hc,
	})
	if err != nil {
		return err
	}
	a.HTTP = hc
	a.API = client
	return nil
}

// RequireAuth fails fast with a usable hint when no session exists.
func (a *App) RequireAuth() error {
	if !a.Session.Snapshot().Authenticated() {
		return errors.Newf("not signed in, run 'archaeotools login' first").
			Component("app").
			Category(errors.CategoryAuth).
			Build()
	}
	return nil
}

type cliState struct {
	CurrentProjectID string `json:"currentProjectId,omitempty"`
}

// CurrentProjectID returns the persisted project selection, empty when
// none was chosen yet.
func (a *App) CurrentProjectID() string {
	if a.statePath == "" {
		return a.Projects.CurrentProjectID()
	}
	data, err := os.ReadFile(a.statePath)
	if err != nil {
		return ""
	}
	var st cliState
	if err := json.Unmarshal(data, &st); err != nil {
		return ""
	}
	return st.CurrentProjectID
}

// SetCurrentProject persists the project selection across invocations.
func (a *App) SetCurrentProject(projectID string) error {
	a.Projects.SelectProject(projectID)
	if a.statePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.statePath), 0o700); err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryFileIO).
			Build()
	}
	data, err := json.MarshalIndent(cliState{CurrentProjectID: projectID}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.statePath, data, 0o600); err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

// ClearCurrentProject drops the persisted selection.
func (a *App) ClearCurrentProject() {
	if a.statePath != "" {
		_ = os.Remove(a.statePath)
	}
}

// ResolveProject picks the project a command operates on: an explicit flag
// wins, then the persisted selection, then the first project on the
// backend.
func (a *App) ResolveProject(ctx context.Context, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if id := a.CurrentProjectID(); id != "" {
		return id, nil
	}

	projects, err := a.API.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "", errors.Newf("no projects exist, create one with 'archaeotools projects create'").
			Component("app").
			Category(errors.CategoryNotFound).
			Build()
	}
	a.Projects.SetProjects(projects)
	return projects[0].ID, nil
}
