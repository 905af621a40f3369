package main

import (
	"fmt"

	"github.com/gridcap/icafetch/internal/store"
	"github.com/gridcap/icafetch/pkg/models"
	"github.com/spf13/cobra"
)

var statusFailures int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show download progress",
	Long:  `Reports how many feeders have been downloaded, how many failed on their last attempt, and the most recent failures from the download log.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusFailures, "failures", 10, "Number of recent failures to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	fmt.Printf("Output directory: %s\n", out.Dir())
	fmt.Println("----------------------------------------")
	fmt.Printf("%-28s %8d\n", "Files on disk:", len(existing))
	fmt.Printf("%-28s %8d\n", "Downloaded (last attempt):", counts[models.StatusDownloaded])
	fmt.Printf("%-28s %8d\n", "Failed (last attempt):", counts[models.StatusFailed])

	if counts[models.StatusFailed] == 0 {
		return nil
	}

	failures, err := db.RecentFailures(statusFailures)
	if err != nil {
		return fmt.Errorf("reading failures: %w", err)
	}

	fmt.Println("\nRecent failures:")
	fmt.Println("----------------------------------------")
	for _, rec := range failures {
		fmt.Printf("%-16s %s  %s\n", rec.FeederID, rec.CreatedAt.Format("2006-01-02 15:04"), rec.Error)
	}
	fmt.Println("\nRe-run 'icafetch fetch' to retry failed feeders.")

	return nil
}
