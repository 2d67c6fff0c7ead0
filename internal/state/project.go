// Package state holds the client-side stores that mirror backend data and
// notify subscribers on change. Stores are explicit objects handed to
// their consumers, never package-level singletons.
package state

import (
	"sync"

	"github.com/argiloff/archaeotools-cms/internal/api"
)

// ProjectSnapshot is an immutable view of the project store.
type ProjectSnapshot struct {
	Projects         []api.Project
	CurrentProjectID string
}

// Current returns the selected project, or nil when none is selected.
func (s ProjectSnapshot) Current() *api.Project {
	for i := range s.Projects {
		if s.Projects[i].ID == s.CurrentProjectID {
			return &s.Projects[i]
		}
	}
	return nil
}

// ProjectStore tracks the known projects and the current selection. When
// the project list is replaced and the previous selection is gone, the
// selection falls back to the first project.
type ProjectStore struct {
	mu        sync.RWMutex
	projects  []api.Project
	currentID string

	// notifyMu serializes notification delivery so concurrent mutations
	// reach subscribers in the order they were applied.
	notifyMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]func(ProjectSnapshot)
	nextSub int
}

// NewProjectStore creates an empty store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{subs: make(map[int]func(ProjectSnapshot))}
}

// Snapshot returns a copy of the current state.
func (s *ProjectStore) Snapshot() ProjectSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *ProjectStore) snapshotLocked() ProjectSnapshot {
	projects := make([]api.Project, len(s.projects))
	copy(projects, s.projects)
	return ProjectSnapshot{Projects: projects, CurrentProjectID: s.currentID}
}

// CurrentProjectID returns the selected project ID, empty when none.
func (s *ProjectStore) CurrentProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// SetProjects replaces the project list. An existing selection is kept if
// the project survived the replacement, otherwise the first project in the
// new list becomes current.
func (s *ProjectStore) SetProjects(projects []api.Project) {
	s.mutate(func() {
		s.projects = make([]api.Project, len(projects))
		copy(s.projects, projects)
		if !s.hasProjectLocked(s.currentID) {
			s.currentID = ""
			if len(s.projects) > 0 {
				s.currentID = s.projects[0].ID
			}
		}
	})
}

// SelectProject changes the selection. Selecting an unknown ID is a no-op.
func (s *ProjectStore) SelectProject(projectID string) {
	s.mutate(func() {
		if s.hasProjectLocked(projectID) {
			s.currentID = projectID
		}
	})
}

// Upsert inserts or replaces one project in place.
func (s *ProjectStore) Upsert(project api.Project) {
	s.mutate(func() {
		for i := range s.projects {
			if s.projects[i].ID == project.ID {
				s.projects[i] = project
				return
			}
		}
		s.projects = append(s.projects, project)
		if s.currentID == "" {
			s.currentID = project.ID
		}
	})
}

// Remove drops a project. A removed selection falls back to the first
// remaining project.
func (s *ProjectStore) Remove(projectID string) {
	s.mutate(func() {
		kept := s.projects[:0]
		for _, p := range s.projects {
			if p.ID != projectID {
				kept = append(kept, p)
			}
		}
		s.projects = kept
		if s.currentID == projectID {
			s.currentID = ""
			if len(s.projects) > 0 {
				s.currentID = s.projects[0].ID
			}
		}
	})
}

// Subscribe registers fn for change notifications and returns an
// unsubscribe function. Notifications are synchronous and ordered. The
// callback may subscribe or unsubscribe, but must not mutate the store it
// observes.
func (s *ProjectStore) Subscribe(fn func(ProjectSnapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *ProjectStore) hasProjectLocked(projectID string) bool {
	if projectID == "" {
		return false
	}
	for i := range s.projects {
		if s.projects[i].ID == projectID {
			return true
		}
	}
	return false
}

// mutate applies one state change and notifies subscribers in mutation
// order. The subscriber list is copied before callbacks run so a callback
// can subscribe or unsubscribe without deadlocking.
func (s *ProjectStore) mutate(apply func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	apply()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(ProjectSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
