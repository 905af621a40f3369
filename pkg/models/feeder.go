package models

import "time"

// Download statuses recorded in the local database.
const (
	StatusDownloaded = "downloaded"
	StatusFailed     = "failed"
)

// Feeder identifies a distribution circuit on the ICA map
type Feeder struct {
	ID     string `json:"id"`
	County string `json:"county,omitempty"` // From the shapefile attribute table, when available
}

// DownloadRecord represents one download attempt for a feeder
type DownloadRecord struct {
	ID        int       `json:"id"`
	FeederID  string    `json:"feeder_id"`
	County    string    `json:"county,omitempty"`
	Status    string    `json:"status"` // "downloaded" or "failed"
	Bytes     int64     `json:"bytes"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunSummary summarizes one fetch run
type RunSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Listed     int       `json:"listed"`     // Feeders returned by the source (after dedupe)
	Skipped    int       `json:"skipped"`    // Already present in the output directory
	Attempted  int       `json:"attempted"`  // Fetches actually issued
	Downloaded int       `json:"downloaded"` // Saved successfully
	Failed     []string  `json:"failed"`     // Feeder IDs whose fetch failed
}
