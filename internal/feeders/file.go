package feeders

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gridcap/icafetch/pkg/models"
)

// FileSource reads feeder IDs from a newline-delimited text file. Blank lines
// and lines starting with # are ignored.
type FileSource struct {
	Path string
}

// NewFileSource creates a list-file feeder source
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// List reads the feeder ID list
func (s *FileSource) List(ctx context.Context) ([]models.Feeder, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening feeder list %s: %w", s.Path, err)
	}
	defer f.Close()

	var feeders []models.Feeder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		feeders = append(feeders, models.Feeder{ID: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feeder list %s: %w", s.Path, err)
	}

	return feeders, nil
}
