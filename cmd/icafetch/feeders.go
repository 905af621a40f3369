package main

import (
	"context"
	"fmt"

	"github.com/gridcap/icafetch/internal/feeders"
	"github.com/spf13/cobra"
)

var feedersCounty string

var feedersCmd = &cobra.Command{
	Use:   "feeders",
	Short: "List the feeder inventory",
	Long:  `Prints the feeder IDs from the configured source (shapefile, index endpoint, or list file).`,
	RunE:  runFeeders,
}

func init() {
	feedersCmd.Flags().StringVar(&feedersCounty, "county", "", "Filter by county (when the source carries one)")
	rootCmd.AddCommand(feedersCmd)
}

func runFeeders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	source, err := newFeederSource(cfg)
	if err != nil {
		return err
	}

	listed, err := source.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing feeders: %w", err)
	}
	listed = feeders.Dedupe(listed)

	if len(listed) == 0 {
		fmt.Println("No feeders found")
		return nil
	}

	count := 0
	for _, f := range listed {
		if feedersCounty != "" && f.County != feedersCounty {
			continue
		}
		if f.County != "" {
			fmt.Printf("%s\t%s\n", f.ID, f.County)
		} else {
			fmt.Println(f.ID)
		}
		count++
	}

	fmt.Printf("Total: %d feeders\n", count)
	return nil
}
