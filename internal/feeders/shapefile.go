package feeders

import (
	"context"
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/gridcap/icafetch/pkg/models"
)

// ShapefileSource reads feeder IDs from the attribute table of the ICA
// feeder-detail shapefile (the feeder layer of the utility's geodatabase,
// converted to a shapefile).
type ShapefileSource struct {
	Path string
}

// NewShapefileSource creates a shapefile-backed feeder source
func NewShapefileSource(path string) *ShapefileSource {
	return &ShapefileSource{Path: path}
}

// List reads every record's FeederID (and county, when the layer carries one)
func (s *ShapefileSource) List(ctx context.Context) ([]models.Feeder, error) {
	r, err := shp.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile %s: %w", s.Path, err)
	}
	defer r.Close()

	// Locate the FeederID and county columns in the DBF attribute table
	fields := r.Fields()
	idCol := -1
	countyCol := -1
	for i, f := range fields {
		name := strings.ToLower(strings.TrimRight(string(f.Name[:]), "\x00"))
		switch {
		case name == "feederid" || name == "feeder_id":
			idCol = i
		case strings.Contains(name, "county"):
			countyCol = i
		}
	}
	if idCol == -1 {
		return nil, fmt.Errorf("shapefile %s has no FeederID attribute", s.Path)
	}

	var feeders []models.Feeder
	for r.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, _ := r.Shape()

		id := strings.TrimSpace(r.ReadAttribute(n, idCol))
		if id == "" {
			continue
		}

		f := models.Feeder{ID: id}
		if countyCol != -1 {
			f.County = strings.TrimSpace(r.ReadAttribute(n, countyCol))
		}
		feeders = append(feeders, f)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading shapefile %s: %w", s.Path, err)
	}

	return feeders, nil
}
