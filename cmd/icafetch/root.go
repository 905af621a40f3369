package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridcap/icafetch/internal/config"
	"github.com/gridcap/icafetch/internal/database"
	"github.com/gridcap/icafetch/internal/feeders"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "icafetch",
	Short: "Download feeder-level ICA hosting-capacity time series",
	Long: `icafetch downloads the Integration Capacity Analysis (ICA) time series for
each feeder on a utility's public ICA map and saves one csv file per feeder.
Download attempts are logged to a local SQLite database so interrupted runs
can be resumed and audited.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./downloads.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "downloads.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// newFeederSource builds the feeder source selected in config
func newFeederSource(cfg *config.Config) (feeders.Source, error) {
	switch cfg.GetFeederSource() {
	case "shapefile":
		if cfg.Feeders.Shapefile == "" {
			return nil, fmt.Errorf("feeder source is shapefile but feeders.shapefile is not set")
		}
		return feeders.NewShapefileSource(cfg.Feeders.Shapefile), nil
	case "file":
		if cfg.Feeders.ListFile == "" {
			return nil, fmt.Errorf("feeder source is file but feeders.list_file is not set")
		}
		return feeders.NewFileSource(cfg.Feeders.ListFile), nil
	case "index":
		if cfg.Feeders.IndexURL == "" {
			return nil, fmt.Errorf("feeder source is index but feeders.index_url is not set")
		}
		return feeders.NewIndexSource(cfg.Feeders.IndexURL, cfg.GetTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown feeder source: %s (available: shapefile, index, file)", cfg.GetFeederSource())
	}
}
