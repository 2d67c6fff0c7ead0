package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/argiloff/archaeotools-cms/internal/api"
	"github.com/argiloff/archaeotools-cms/internal/errors"
	"github.com/argiloff/archaeotools-cms/internal/logging"
)

// DefaultMaxFilePlaces caps one file import.
const DefaultMaxFilePlaces = 1000

// FileImportOptions configures ImportPlacesFromFile.
type FileImportOptions struct {
	// ProjectID assigns imported places to a project. Empty creates
	// global unassigned places.
	ProjectID string
	// MaxPlaces caps the file size (default 1000).
	MaxPlaces int
	// Source tags the created places' importSource field.
	Source string
}

// FileImportError records one rejected entry.
type FileImportError struct {
	Place string
	Err   string
}

// FileImportReport summarizes a file import. Individual bad entries are
// skipped and reported; only file-level problems abort the import.
type FileImportReport struct {
	Imported int
	Skipped  int
	Errors   []FileImportError
}

// ImportPlacesFromFile reads a JSON file of places and creates them one by
// one. The file is either a bare array of places or a {"places": [...]}
// document. Entries without both coordinates are skipped, creation
// failures skip the entry, and everything skipped lands in the report.
func ImportPlacesFromFile(ctx context.Context, client *api.Client, r io.Reader, opts FileImportOptions) (*FileImportReport, error) {
	logger := logging.ForService("importer")
	maxPlaces := opts.MaxPlaces
	if maxPlaces <= 0 {
		maxPlaces = DefaultMaxFilePlaces
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Newf("failed to read places file: %w", err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Build()
	}

	places, err := decodePlacesFile(data)
	if err != nil {
		return nil, err
	}
	if len(places) > maxPlaces {
		return nil, errors.Newf("file holds %d places, limit is %d", len(places), maxPlaces).
			Component("importer").
			Category(errors.CategoryLimit).
			Build()
	}

	source := opts.Source
	if source == "" {
		source = "file-import"
	}

	report := &FileImportReport{}
	for i := range places {
		if err := ctx.Err(); err != nil {
			return report, errors.New(err).
				Component("importer").
				Category(errors.CategoryCancellation).
				Build()
		}

		dp := &places[i]
		title := dp.Title
		if title == "" {
			title = fmt.Sprintf("entry %d", i+1)
		}
		if !dp.HasCoordinates() {
			report.Skipped++
			report.Errors = append(report.Errors, FileImportError{
				Place: title,
				Err:   "latitude and longitude are required",
			})
			continue
		}

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
			ImportSource: source,
		}

		var createErr error
		if opts.ProjectID != "" {
			_, createErr = client.CreateProjectPlace(ctx, opts.ProjectID, params)
		} else {
			_, createErr = client.CreatePlace(ctx, params)
		}
		if createErr != nil {
			logger.Warn("Place import entry failed, skipping",
				"place", title, "error", createErr)
			report.Skipped++
			report.Errors = append(report.Errors, FileImportError{
				Place: title,
				Err:   createErr.Error(),
			})
			continue
		}
		report.Imported++
	}
	return report, nil
}

func decodePlacesFile(data []byte) ([]DemoPlace, error) {
	var places []DemoPlace
	if err := json.Unmarshal(data, &places); err == nil {
		return places, nil
	}
	var wrapper struct {
		Places json.RawMessage `json:"places"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil || len(wrapper.Places) == 0 {
		return nil, errors.Newf("places file is neither a place array nor a places document").
			Component("importer").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if err := json.Unmarshal(wrapper.Places, &places); err != nil {
		return nil, errors.Newf("places entry is not an array: %w", err).
			Component("importer").
			Category(errors.CategoryFileParsing).
			Build()
	}
	return places, nil
}
