package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argiloff/archaeotools-cms/internal/api"
)

func project(id, name string) api.Project {
	return api.Project{ID: id, Name: name}
}

func TestSetProjectsSelectsFirstByDefault(t *testing.T) {
	store := NewProjectStore()
	store.SetProjects([]api.Project{project("p1", "Alpha"), project("p2", "Beta")})

	snap := store.Snapshot()
	assert.Equal(t, "p1", snap.CurrentProjectID)
	require.NotNil(t, snap.Current())
	assert.Equal(t, "Alpha", snap.Current().Name)
}

func TestSetProjectsKeepsSurvivingSelection(t *testing.T) {
	store := NewProjectStore()
	store.SetProjects([]api.Project{project("p1", "Alpha"), project("p2", "Beta")})
	store.SelectProject("p2")

	store.SetProjects([]api.Project{project("p2", "Beta"), project("p3", "Gamma")})
	assert.Equal(t, "p2", store.CurrentProjectID())
}

func TestSetProjectsResetsLostSelection(t *testing.T) {
	store := NewProjectStore()
	store.SetProjects([]api.Project{project("p1", "Alpha")})
	store.SetProjects([]api.Project{project("p9", "Omega")})
	assert.Equal(t, "p9", store.CurrentProjectID())

	store.SetProjects(nil)
	assert.Empty(t, store.CurrentProjectID())
	assert.Nil(t, store.Snapshot().Current())
}

func TestSelectUnknownProjectIsNoOp(t *testing.T) {
	store := NewProjectStore()
	store.SetProjects([]api.Project{project("p1", "Alpha")})
	store.SelectProject("nope")
	assert.Equal(t, "p1", store.CurrentProjectID())
}

func TestRemoveFallsBackToFirstRemaining(t *testing.T) {
	store := NewProjectStore()
	store.SetProjects([]api.Project{project("p1", "Alpha"), project("p2", "Beta")})

	store.Remove("p1")
	assert.Equal(t, "p2", store.CurrentProjectID())

	store.Remove("p2")
	assert.Empty(t, store.CurrentProjectID())
}

func TestSubscribeReceivesOrderedSnapshots(t *testing.T) {
	store := NewProjectStore()
	var seen []string
	unsubscribe := store.Subscribe(func(snap ProjectSnapshot) {
		seen = append(seen, snap.CurrentProjectID)
	})

	store.SetProjects([]api.Project{project("p1", "Alpha"), project("p2", "Beta")})
	store.SelectProject("p2")
	assert.Equal(t, []string{"p1", "p2"}, seen)

	unsubscribe()
	store.SelectProject("p1")
	assert.Len(t, seen, 2)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	store := NewProjectStore()
	store.Upsert(project("p1", "Alpha"))
	assert.Equal(t, "p1", store.CurrentProjectID())

	store.Upsert(project("p1", "Alpha Renamed"))
	snap := store.Snapshot()
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "Alpha Renamed", snap.Projects[0].Name)
}

func TestSubscriberMayUnsubscribeDuringNotification(t *testing.T) {
	store := NewProjectStore()
	count := 0
	var unsub func()
	unsub = store.Subscribe(func(ProjectSnapshot) {
		count++
		unsub()
	})

	store.SetProjects([]api.Project{project("p1", "Alpha")})
	store.SelectProject("p1")

	assert.Equal(t, 1, count)
}

func TestSubscriberMaySubscribeDuringNotification(t *testing.T) {
	store := NewProjectStore()
	lateCalls := 0
	store.Subscribe(func(ProjectSnapshot) {
		if lateCalls == 0 {
			store.Subscribe(func(ProjectSnapshot) { lateCalls++ })
		}
	})

	store.SetProjects([]api.Project{project("p1", "Alpha"), project("p2", "Beta")})
	store.SelectProject("p2")

	assert.GreaterOrEqual(t, lateCalls, 1)
}
