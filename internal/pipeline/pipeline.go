// Package pipeline runs one download pass: list the feeders, fetch each one's
// time series, save the payload. Feeders are independent; one feeder's
// failure never aborts the rest of the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridcap/icafetch/internal/feeders"
	"github.com/gridcap/icafetch/internal/ica"
	"github.com/gridcap/icafetch/pkg/models"
)

// Fetcher downloads one feeder's time series
type Fetcher interface {
	FetchTimeseries(ctx context.Context, feederID string) ([]byte, error)
}

// Saver persists payloads and knows which feeders are already on disk
type Saver interface {
	Save(feederID string, payload []byte) error
	Existing() (map[string]bool, error)
}

// Recorder logs download attempts; nil disables recording
type Recorder interface {
	InsertDownload(rec *models.DownloadRecord) error
}

// Options control a run
type Options struct {
	Force bool // Redownload feeders that already have output files
	Limit int  // Stop after this many fetch attempts (0 = no limit)
}

// Pipeline wires a feeder source to a fetcher and a saver
type Pipeline struct {
	source   feeders.Source
	fetcher  Fetcher
	saver    Saver
	recorder Recorder
	logger   *slog.Logger
}

// New creates a pipeline. recorder may be nil.
func New(source feeders.Source, fetcher Fetcher, saver Saver, recorder Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		fetcher:  fetcher,
		saver:    saver,
		recorder: recorder,
		logger:   logger,
	}
}

// Run executes one download pass. A feeder-listing failure is fatal since
// nothing can proceed without the inventory; per-feeder failures are logged,
// recorded, and skipped. Each listed feeder gets exactly one fetch attempt.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*models.RunSummary, error) {
	summary := &models.RunSummary{StartedAt: time.Now().UTC()}

	listed, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feeders: %w", err)
	}
	listed = feeders.Dedupe(listed)
	summary.Listed = len(listed)

	existing := map[string]bool{}
	if !opts.Force {
		existing, err = p.saver.Existing()
		if err != nil {
			return nil, fmt.Errorf("scanning existing output: %w", err)
		}
	}

	for _, feeder := range listed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Limit > 0 && summary.Attempted >= opts.Limit {
			break
		}

		if existing[feeder.ID] {
			summary.Skipped++
			continue
		}

		summary.Attempted++
		payload, err := p.fetcher.FetchTimeseries(ctx, feeder.ID)
		if err == nil {
			err = p.saver.Save(feeder.ID, payload)
		}

		if err != nil {
			summary.Failed = append(summary.Failed, feeder.ID)
			p.logger.Error("feeder download failed", "feeder", feeder.ID, "error", err)
			p.record(&models.DownloadRecord{
				FeederID: feeder.ID,
				County:   feeder.County,
				Status:   models.StatusFailed,
				Error:    err.Error(),
			})

			// A rejected session would fail every remaining feeder the same
			// way; stop so the caller can refresh the login
			var authErr *ica.AuthError
			if errors.As(err, &authErr) {
				return nil, fmt.Errorf("session rejected at feeder %s: %w", feeder.ID, err)
			}
			continue
		}

		summary.Downloaded++
		p.logger.Info("feeder downloaded", "feeder", feeder.ID, "bytes", len(payload))
		p.record(&models.DownloadRecord{
			FeederID: feeder.ID,
			County:   feeder.County,
			Status:   models.StatusDownloaded,
			Bytes:    int64(len(payload)),
		})
	}

	summary.FinishedAt = time.Now().UTC()
	return summary, nil
}

func (p *Pipeline) record(rec *models.DownloadRecord) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.InsertDownload(rec); err != nil {
		p.logger.Warn("recording download attempt", "feeder", rec.FeederID, "error", err)
	}
}
