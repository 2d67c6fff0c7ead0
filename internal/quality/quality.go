// Package quality computes data-quality reports for a project: how
// complete the field documentation is across places, photos and OSINT
// research, scored against fixed coverage thresholds.
package quality

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/argiloff/archaeotools-cms/internal/api"
)

// Coverage thresholds. A metric is met when its coverage ratio reaches the
// threshold, or trivially when the resource is empty.
const (
	thresholdPhotosGPS         = 0.8
	thresholdPhotoDescriptions = 0.7
	thresholdPhotoTags         = 0.5
	thresholdPlaceDescriptions = 0.6
	thresholdPlacesVisited     = 0.5
	thresholdOsintSources      = 0.9
	thresholdOsintDone         = 0.5
	thresholdOsintSummaries    = 0.7
)

const metricCount = 9

// Severity ranks an issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue is one detected documentation gap.
type Issue struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Stats holds the raw coverage counts behind a report.
type Stats struct {
	Places                int `json:"places"`
	PlacesWithDescription int `json:"placesWithDescription"`
	PlacesVisited         int `json:"placesVisited"`
	PlacesWithCoordinates int `json:"placesWithCoordinates"`

	Photos                int `json:"photos"`
	PhotosWithGPS         int `json:"photosWithGps"`
	PhotosWithDescription int `json:"photosWithDescription"`
	PhotosWithTags        int `json:"photosWithTags"`

	OsintItems       int `json:"osintItems"`
	OsintWithSource  int `json:"osintWithSource"`
	OsintDone        int `json:"osintDone"`
	OsintWithSummary int `json:"osintWithSummary"`
}

// Report is a scored quality assessment of one project.
type Report struct {
	ProjectID  string  `json:"projectId"`
	Stats      Stats   `json:"stats"`
	MetricsMet int     `json:"metricsMet"`
	Score      int     `json:"score"`
	Issues     []Issue `json:"issues"`
}

// Collect fetches a project's places, photos and OSINT items concurrently
// and evaluates them.
func Collect(ctx context.Context, client *api.Client, projectID string) (*Report, error) {
	var (
		places []api.Place
		photos []api.Photo
		osint  []api.OsintItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		got, err := client.ListProjectPlaces(gctx, projectID)
		if err != nil {
			return err
		}
		places = got
		return nil
	})
	g.Go(func() error {
		got, err := client.ListPhotos(gctx, projectID)
		if err != nil {
			return err
		}
		photos = got
		return nil
	})
	g.Go(func() error {
		got, err := client.ListOsintItems(gctx, projectID)
		if err != nil {
			return err
		}
		osint = got
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Evaluate(projectID, places, photos, osint), nil
}

// Evaluate scores already-fetched project data.
func Evaluate(projectID string, places []api.Place, photos []api.Photo, osint []api.OsintItem) *Report {
	stats := gatherStats(places, photos, osint)
	report := &Report{ProjectID: projectID, Stats: stats}

	met := 0
	if metricMet(stats.PhotosWithGPS, stats.Photos, thresholdPhotosGPS) {
		met++
	}
	if metricMet(stats.PhotosWithDescription, stats.Photos, thresholdPhotoDescriptions) {
		met++
	}
	if metricMet(stats.PhotosWithTags, stats.Photos, thresholdPhotoTags) {
		met++
	}
	if metricMet(stats.PlacesWithDescription, stats.Places, thresholdPlaceDescriptions) {
		met++
	}
	if metricMet(stats.PlacesVisited, stats.Places, thresholdPlacesVisited) {
		met++
	}
	// Coordinates are not a percentage target: every place needs them.
	if stats.Places == 0 || stats.PlacesWithCoordinates == stats.Places {
		met++
	}
	if metricMet(stats.OsintWithSource, stats.OsintItems, thresholdOsintSources) {
		met++
	}
	if metricMet(stats.OsintDone, stats.OsintItems, thresholdOsintDone) {
		met++
	}
	if metricMet(stats.OsintWithSummary, stats.OsintItems, thresholdOsintSummaries) {
		met++
	}
	report.MetricsMet = met
	report.Score = int(math.Round(float64(met) / metricCount * 100))
	report.Issues = detectIssues(stats)
	return report
}

func gatherStats(places []api.Place, photos []api.Photo, osint []api.OsintItem) Stats {
	var stats Stats

	stats.Places = len(places)
	for i := range places {
		p := &places[i]
		if p.Description != "" {
			stats.PlacesWithDescription++
		}
		if p.Visited {
			stats.PlacesVisited++
		}
		if p.HasCoordinates() {
			stats.PlacesWithCoordinates++
		}
	}

	stats.Photos = len(photos)
	for i := range photos {
		ph := &photos[i]
		if ph.HasCoordinates() {
			stats.PhotosWithGPS++
		}
		if ph.Description != "" {
			stats.PhotosWithDescription++
		}
		if len(ph.Tags) > 0 {
			stats.PhotosWithTags++
		}
	}

	stats.OsintItems = len(osint)
	for i := range osint {
		item := &osint[i]
		if item.Source != "" {
			stats.OsintWithSource++
		}
		if item.Status == api.OsintDone {
			stats.OsintDone++
		}
		if item.Summary != "" {
			stats.OsintWithSummary++
		}
	}
	return stats
}

func detectIssues(stats Stats) []Issue {
	var issues []Issue

	// Gap issues flag every missing attribute, not just coverage below the
	// score thresholds. The severity still depends on the coverage ratio.
	if stats.Photos > 0 {
		if stats.PhotosWithGPS < stats.Photos {
			severity := SeverityMedium
			if ratio(stats.PhotosWithGPS, stats.Photos) < 0.5 {
				severity = SeverityHigh
			}
			issues = append(issues, Issue{
				ID:       "photos-no-gps",
				Severity: severity,
				Message: fmt.Sprintf("%d of %d photos have no GPS coordinates",
					stats.Photos-stats.PhotosWithGPS, stats.Photos),
			})
		}
		if stats.PhotosWithDescription < stats.Photos {
			issues = append(issues, Issue{
				ID:       "photos-no-description",
				Severity: SeverityLow,
				Message: fmt.Sprintf("%d of %d photos have no description",
					stats.Photos-stats.PhotosWithDescription, stats.Photos),
			})
		}
	}

	if stats.Places > 0 {
		if stats.PlacesWithDescription < stats.Places {
			severity := SeverityMedium
			if ratio(stats.PlacesWithDescription, stats.Places) < 0.3 {
				severity = SeverityHigh
			}
			issues = append(issues, Issue{
				ID:       "places-no-description",
				Severity: severity,
				Message: fmt.Sprintf("%d of %d places have no description",
					stats.Places-stats.PlacesWithDescription, stats.Places),
			})
		}
		if ratio(stats.PlacesVisited, stats.Places) < 0.5 {
			issues = append(issues, Issue{
				ID:       "places-not-visited",
				Severity: SeverityMedium,
				Message: fmt.Sprintf("%d of %d places have not been visited",
					stats.Places-stats.PlacesVisited, stats.Places),
			})
		}
	}

	if stats.OsintItems > 0 {
		if ratio(stats.OsintWithSource, stats.OsintItems) < thresholdOsintSources {
			issues = append(issues, Issue{
				ID:       "osint-no-source",
				Severity: SeverityHigh,
				Message: fmt.Sprintf("%d of %d research entries cite no source",
					stats.OsintItems-stats.OsintWithSource, stats.OsintItems),
			})
		}
	} else {
		issues = append(issues, Issue{
			ID:       "no-osint",
			Severity: SeverityLow,
			Message:  "project has no research entries",
		})
	}

	return issues
}

func metricMet(count, total int, threshold float64) bool {
	if total == 0 {
		return true
	}
	return ratio(count, total) >= threshold
}

func ratio(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
