package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argiloff/archaeotools-cms/internal/api"
)

func TestParseDataset(t *testing.T) {
	data := []byte(`{
		"name": "Demo",
		"places": [
			{"title": "Villa", "type": "ARCHAEOLOGICAL_SITE", "latitude": 48.1, "longitude": 11.5,
			 "radiusMeters": 120,
			 "photos": [{"imageUrl": "https://x/a.jpg", "description": "east wing"}]},
			{"name": "Legacy Fort", "lat": 48.3, "lng": 11.7,
			 "photos": [{"url": "https://x/b.jpg"}]}
		]
	}`)

	dataset, err := ParseDataset(data)
	require.NoError(t, err)
	assert.Equal(t, "Demo", dataset.Name)
	require.Len(t, dataset.Places, 2)
	assert.Equal(t, 2, dataset.PhotoCount())

	villa := dataset.Places[0]
	assert.Equal(t, api.PlaceArchaeologicalSite, villa.Type)
	assert.InDelta(t, 120, villa.RadiusMeters, 1e-9)
	assert.Equal(t, "https://x/a.jpg", villa.Photos[0].URL)
	assert.Equal(t, "east wing", villa.Photos[0].Description)

	fort := dataset.Places[1]
	assert.Equal(t, "Legacy Fort", fort.Title)
	assert.Equal(t, "https://x/b.jpg", fort.Photos[0].URL)
	require.True(t, fort.HasCoordinates())
	assert.InDelta(t, 48.3, *fort.Latitude, 1e-9)
}

func TestParseDatasetRejectsMissingPlaces(t *testing.T) {
	_, err := ParseDataset([]byte(`{"name": "empty"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no places array")

	_, err = ParseDataset([]byte(`{"places": null}`))
	require.Error(t, err)
}

func TestParseDatasetRejectsNonArrayPlaces(t *testing.T) {
	_, err := ParseDataset([]byte(`{"places": {"title": "not an array"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an array")
}

func TestParseDatasetRejectsInvalidJSON(t *testing.T) {
	_, err := ParseDataset([]byte(`{`))
	require.Error(t, err)
}
