package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridcap/icafetch/internal/browser"
	"github.com/gridcap/icafetch/internal/ica"
	"github.com/gridcap/icafetch/internal/pipeline"
	"github.com/gridcap/icafetch/internal/store"
	"github.com/spf13/cobra"
)

var (
	fetchForce bool
	fetchLimit int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the time series for every feeder",
	Long: `Enumerates the feeder inventory from the configured source and downloads each
feeder's ICA time series to the output directory, one csv per feeder. Feeders
that already have a file are skipped unless --force is given, so an
interrupted run picks up where it left off. Per-feeder failures are logged
and skipped; they never stop the run.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "Redownload feeders that already have output files")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "Stop after this many downloads (0 = no limit)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	source, err := newFeederSource(cfg)
	if err != nil {
		return err
	}

	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	out, err := store.New(cfg.GetOutputDir())
	if err != nil {
		return fmt.Errorf("opening output directory: %w", err)
	}

	ctx := context.Background()

	// The map requires a logged-in session; log in up front when we have
	// credentials but no saved cookies
	cookies := cfg.ICAMap.Cookies
	if len(cookies) == 0 && cfg.ICAMap.Username != "" && cfg.ICAMap.Password != "" {
		fmt.Println("No cookies found, performing initial login...")
		fresh, err := browser.Login(ctx, cfg.GetLoginURL(), cfg.ICAMap.Username, cfg.ICAMap.Password)
		if err != nil {
			return fmt.Errorf("initial login failed: %w", err)
		}
		cookies = fresh
		cfg.ICAMap.Cookies = fresh
		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Warning: Could not save cookies: %v\n", err)
		} else {
			fmt.Println("✓ Login successful, cookies saved")
		}
	}

	client := ica.New(cfg.GetDataURL(), cookies, cfg.ICAMap.AuthToken, cfg.GetRetries(), cfg.GetTimeout())
	pipe := pipeline.New(source, client, out, db, slog.Default())

	fmt.Printf("Downloading feeder time series to %s...\n", out.Dir())
	summary, err := pipe.Run(ctx, pipeline.Options{Force: fetchForce, Limit: fetchLimit})

	// An expired session is the one failure worth one automatic recovery:
	// refresh the cookies and run again
	var authErr *ica.AuthError
	if errors.As(err, &authErr) && cfg.ICAMap.Username != "" && cfg.ICAMap.Password != "" {
		fmt.Printf("⚠ Session rejected: %v\n", err)
		fmt.Println("⚠ Refreshing login and retrying...")

		fresh, loginErr := browser.Login(ctx, cfg.GetLoginURL(), cfg.ICAMap.Username, cfg.ICAMap.Password)
		if loginErr != nil {
			return fmt.Errorf("refreshing login: %w (original error: %v)", loginErr, err)
		}
		cfg.ICAMap.Cookies = fresh
		if saveErr := saveConfig(cfg); saveErr != nil {
			fmt.Printf("Warning: Could not save cookies: %v\n", saveErr)
		} else {
			fmt.Println("✓ Cookies refreshed and saved")
		}

		client = ica.New(cfg.GetDataURL(), fresh, cfg.ICAMap.AuthToken, cfg.GetRetries(), cfg.GetTimeout())
		pipe = pipeline.New(source, client, out, db, slog.Default())
		summary, err = pipe.Run(ctx, pipeline.Options{Force: fetchForce, Limit: fetchLimit})
	}
	if err != nil {
		return fmt.Errorf("fetch run: %w", err)
	}

	fmt.Printf("✓ Run complete: %d listed, %d skipped (already present), %d downloaded, %d failed\n",
		summary.Listed, summary.Skipped, summary.Downloaded, len(summary.Failed))
	if len(summary.Failed) > 0 {
		fmt.Println("Feeders that weren't processed:")
		for _, id := range summary.Failed {
			fmt.Printf("  %s\n", id)
		}
		fmt.Println("Re-run fetch to retry just these feeders.")
	}

	return nil
}
