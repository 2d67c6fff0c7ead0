// Package importer loads demo datasets and place files into the backend.
// The pipeline runs strictly sequentially with paced requests so a bulk
// import never trips the backend rate limiter under normal conditions.
package importer

import (
	"encoding/json"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/errors"
)

// DemoPhoto is one photo reference inside a dataset place. The URL points
// at a fetchable image; the pipeline downloads and re-uploads it.
type DemoPhoto struct {
	URL         string   `json:"imageUrl"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UnmarshalJSON also accepts the shorter "url" key for the image URL.
func (p *DemoPhoto) UnmarshalJSON(data []byte) error {
	type photoAlias DemoPhoto
	aux := struct {
		*photoAlias
		URL string `json:"url"`
	}{photoAlias: (*photoAlias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.URL == "" {
		p.URL = aux.URL
	}
	return nil
}

// DemoPlace is one place entry of a demo dataset.
type DemoPlace struct {
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Type         api.PlaceType `json:"type,omitempty"`
	Latitude     *float64      `json:"latitude,omitempty"`
	Longitude    *float64      `json:"longitude,omitempty"`
	Address      string        `json:"address,omitempty"`
	City         string        `json:"city,omitempty"`
	Country      string        `json:"country,omitempty"`
	RadiusMeters float64       `json:"radiusMeters,omitempty"`
	Visited      bool          `json:"visited,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Photos       []DemoPhoto   `json:"photos,omitempty"`
}

// UnmarshalJSON accepts the legacy name/lat/lng keys.
func (p *DemoPlace) UnmarshalJSON(data []byte) error {
	type placeAlias DemoPlace
	aux := struct {
		*placeAlias
		Name *string  `json:"name"`
		Lat  *float64 `json:"lat"`
		Lng  *float64 `json:"lng"`
	}{placeAlias: (*placeAlias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.Title == "" && aux.Name != nil {
		p.Title = *aux.Name
	}
	if p.Latitude == nil && aux.Lat != nil {
		p.Latitude = aux.Lat
	}
	if p.Longitude == nil && aux.Lng != nil {
		p.Longitude = aux.Lng
	}
	return nil
}

// HasCoordinates reports whether both coordinates are present.
func (p *DemoPlace) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Dataset is a parsed demo dataset.
type Dataset struct {
	Name   string      `json:"name,omitempty"`
	Places []DemoPlace `json:"places"`
}

// PhotoCount totals the photo references across all places.
func (d *Dataset) PhotoCount() int {
	total := 0
	for i := range d.Places {
		total += len(d.Places[i].Photos)
	}
	return total
}

// ParseDataset decodes and validates a dataset document. A document whose
// "places" key is missing or not an array is rejected up front so the
// pipeline never starts on garbage.
func ParseDataset(data []byte) (*Dataset, error) {
	var doc struct {
		Name   string          `json:"name"`
		Places json.RawMessage `json:"places"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Newf("dataset is not valid JSON: %w", err).
			Component("importer").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if len(doc.Places) == 0 || string(doc.Places) == "null" {
		return nil, errors.Newf("dataset has no places array").
			Component("importer").
			Category(errors.CategoryValidation).
			Build()
	}

	var places []DemoPlace
	if err := json.Unmarshal(doc.Places, &places); err != nil {
		return nil, errors.Newf("dataset places is not an array: %w", err).
			Component("importer").
			Category(errors.CategoryValidation).
			Build()
	}
	return &Dataset{Name: doc.Name, Places: places}, nil
}
