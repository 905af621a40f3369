// Package feeders enumerates the feeder IDs to download. The inventory can
// come from the utility's ICA feeder-detail shapefile, a remote index
// endpoint, or a plain ID list file.
package feeders

import (
	"context"

	"github.com/gridcap/icafetch/pkg/models"
)

// Source provides the feeder inventory for a run
type Source interface {
	List(ctx context.Context) ([]models.Feeder, error)
}

// Dedupe suppresses duplicate feeder IDs, keeping the first occurrence.
// The map services have been observed to return the same circuit segment
// under multiple layers.
func Dedupe(feeders []models.Feeder) []models.Feeder {
	seen := make(map[string]bool, len(feeders))
	result := make([]models.Feeder, 0, len(feeders))
	for _, f := range feeders {
		if f.ID == "" || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		result = append(result, f)
	}
	return result
}
