package main

import (
	"fmt"
	"time"

	"github.com/gridcap/icafetch/internal/publisher"
	"github.com/gridcap/icafetch/internal/store"
	"github.com/gridcap/icafetch/pkg/models"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish download progress over MQTT",
	Long: `Builds a progress summary from the download log and publishes it to the
configured MQTT topic. Useful for watching a long-running download from a
dashboard.`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.MQTT.Enabled {
		return fmt.Errorf("MQTT is not enabled in config")
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	out, err := store.New(cfg.GetOutputDir())
	if err != nil {
		return fmt.Errorf("opening output directory: %w", err)
	}

	existing, err := out.Existing()
	if err != nil {
		return fmt.Errorf("scanning output directory: %w", err)
	}

	counts, err := db.Counts()
	if err != nil {
		return fmt.Errorf("reading download log: %w", err)
	}

	failures, err := db.RecentFailures(25)
	if err != nil {
		return fmt.Errorf("reading failures: %w", err)
	}

	summary := &models.RunSummary{
		FinishedAt: time.Now().UTC(),
		Downloaded: counts[models.StatusDownloaded],
		Skipped:    len(existing),
	}
	for _, rec := range failures {
		summary.Failed = append(summary.Failed, rec.FeederID)
	}

	pub, err := publisher.New(cfg.MQTT, cfg.GetMQTTTopic())
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	if err := pub.PublishSummary(summary); err != nil {
		return fmt.Errorf("publishing summary: %w", err)
	}

	fmt.Printf("✓ Published progress to %s (%d files on disk, %d failed)\n",
		cfg.GetMQTTTopic(), len(existing), counts[models.StatusFailed])
	return nil
}
