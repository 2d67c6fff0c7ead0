package api

import (
	"encoding/json"
	"time"
)

// Visibility controls who can see a project.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// ProjectType is the kind of research a project holds.
type ProjectType string

const (
	ProjectMuseumGuide ProjectType = "MUSEUM_GUIDE"
	ProjectArchaeology ProjectType = "ARCHAEOLOGY"
	ProjectOsint       ProjectType = "OSINT"
)

// Project is a research project owned by the backend.
type Project struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        ProjectType `json:"type,omitempty"`
	Visibility  Visibility  `json:"visibility,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

// PlaceType is the closed enumeration of heritage-site categories.
type PlaceType string

const (
	PlaceSite               PlaceType = "SITE"
	PlaceMuseum             PlaceType = "MUSEUM"
	PlacePOI                PlaceType = "POI"
	PlaceArchaeologicalSite PlaceType = "ARCHAEOLOGICAL_SITE"
	PlaceHistoricalSite     PlaceType = "HISTORICAL_SITE"
	PlaceMonument           PlaceType = "MONUMENT"
	PlaceArchive            PlaceType = "ARCHIVE"
	PlaceReligiousSite      PlaceType = "RELIGIOUS_SITE"
	PlaceFortification      PlaceType = "FORTIFICATION"
	PlaceSettlement         PlaceType = "SETTLEMENT"
	PlaceBurialSite         PlaceType = "BURIAL_SITE"
	PlaceIndustrialHeritage PlaceType = "INDUSTRIAL_HERITAGE"
	PlaceCulturalLandscape  PlaceType = "CULTURAL_LANDSCAPE"
	PlaceResearchLocation   PlaceType = "RESEARCH_LOCATION"
	PlaceWitnessLocation    PlaceType = "WITNESS_LOCATION"
	PlaceOther              PlaceType = "OTHER"
)

// KnownPlaceTypes lists every valid place type.
func KnownPlaceTypes() []PlaceType {
	return []PlaceType{
		PlaceSite, PlaceMuseum, PlacePOI, PlaceArchaeologicalSite,
		PlaceHistoricalSite, PlaceMonument, PlaceArchive, PlaceReligiousSite,
		PlaceFortification, PlaceSettlement, PlaceBurialSite,
		PlaceIndustrialHeritage, PlaceCulturalLandscape,
		PlaceResearchLocation, PlaceWitnessLocation, PlaceOther,
	}
}

// Valid reports whether t is a known place type.
func (t PlaceType) Valid() bool {
	for _, known := range KnownPlaceTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Place is a geotagged point of interest, optionally tied to a project.
// A nil ProjectID means the place is global/unassigned.
type Place struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId,omitempty"`
	ProjectID    *string        `json:"projectId"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Type         PlaceType      `json:"type,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	RadiusMeters float64        `json:"radiusMeters,omitempty"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city,omitempty"`
	Country      string         `json:"country,omitempty"`
	Visited      bool           `json:"visited,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ImportSource string         `json:"importSource,omitempty"`
	ImportedAt   *time.Time     `json:"importedAt,omitempty"`
	CreatedAt    *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time     `json:"updatedAt,omitempty"`
}

// HasCoordinates reports whether the place carries both latitude and
// longitude, the precondition for any geospatial use.
func (p *Place) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// UnmarshalJSON accepts both the canonical schema and the legacy one the
// backend served before the schema migration (name/lat/lng instead of
// title/latitude/longitude). Compatibility is handled here once, never at
// call sites.
func (p *Place) UnmarshalJSON(data []byte) error {
	type placeAlias Place
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

// Photo is an uploaded image belonging to a project, optionally tied to a
// place. Notes hold serialized rich-text JSON.
type Photo struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	URL         string         `json:"url"`
	StorageKey  string         `json:"storageKey,omitempty"`
	PlaceID     *string        `json:"placeId,omitempty"`
	Description string         `json:"description,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	CapturedAt  *time.Time     `json:"capturedAt,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

// HasCoordinates reports whether the photo carries GPS coordinates.
func (p *Photo) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// UnmarshalJSON accepts the legacy lat/lng keys like Place does.
func (p *Photo) UnmarshalJSON(data []byte) error {
	type photoAlias Photo
	aux := struct {
		*photoAlias
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}{photoAlias: (*photoAlias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.Latitude == nil && aux.Lat != nil {
		p.Latitude = aux.Lat
	}
	if p.Longitude == nil && aux.Lng != nil {
		p.Longitude = aux.Lng
	}
	return nil
}

// OsintStatus is the workflow status of an OSINT research entry.
// The backend does not enforce a transition order.
type OsintStatus string

const (
	OsintIdea       OsintStatus = "IDEA"
	OsintInProgress OsintStatus = "IN_PROGRESS"
	OsintDone       OsintStatus = "DONE"
)

// OsintItem is an open-source-intelligence research entry.
type OsintItem struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"projectId"`
	Title     string      `json:"title"`
	URL       string      `json:"url,omitempty"`
	Source    string      `json:"source,omitempty"`
	Summary   string      `json:"summary,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Status    OsintStatus `json:"status"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
}

// AuthTokens is the access and refresh token pair issued by the backend.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CacheInvalidation records one backend cache invalidation event.
type CacheInvalidation struct {
	ProjectID string    `json:"projectId"`
	At        time.Time `json:"at"`
}

// CacheMetrics is the backend cache health report.
type CacheMetrics struct {
	HitRate           *float64            `json:"hitRate,omitempty"`
	LastInvalidations []CacheInvalidation `json:"lastInvalidations,omitempty"`
}
