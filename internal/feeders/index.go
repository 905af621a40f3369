package feeders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gridcap/icafetch/pkg/models"
)

// IndexSource lists feeders from a JSON index endpoint. The endpoint is
// expected to return either a bare array of feeder IDs or an object with a
// "feeders" array carrying id/county pairs; both shapes have been seen on
// utility map services.
type IndexSource struct {
	URL        string
	httpClient *http.Client
}

// NewIndexSource creates an index-endpoint feeder source
func NewIndexSource(url string, timeout time.Duration) *IndexSource {
	return &IndexSource{
		URL:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// List fetches and decodes the feeder index
func (s *IndexSource) List(ctx context.Context) ([]models.Feeder, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("no feeder index URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating index request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feeder index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("feeder index returned status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feeder index: %w", err)
	}

	return decodeIndex(data)
}

type indexEntry struct {
	ID     string `json:"id"`
	County string `json:"county"`
}

type indexDoc struct {
	Feeders []indexEntry `json:"feeders"`
}

func decodeIndex(data []byte) ([]models.Feeder, error) {
	// Bare array of IDs first
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		feeders := make([]models.Feeder, 0, len(ids))
		for _, id := range ids {
			feeders = append(feeders, models.Feeder{ID: id})
		}
		return feeders, nil
	}

	var doc indexDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding feeder index: %w", err)
	}

	feeders := make([]models.Feeder, 0, len(doc.Feeders))
	for _, e := range doc.Feeders {
		feeders = append(feeders, models.Feeder{ID: e.ID, County: e.County})
	}
	return feeders, nil
}
