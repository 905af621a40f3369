package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	in := &Config{
		ICAMap: ICAMapConfig{
			Username: "researcher",
			Password: "hunter2",
			Cookies: []Cookie{
				{Name: "session", Value: "abc", Domain: ".pge.com", Path: "/", Secure: true},
			},
		},
		Feeders: FeederConfig{
			Source:    "shapefile",
			Shapefile: "data/ica_feederdetail.shp",
		},
		OutputDir: "out",
		Retries:   3,
		MQTT:      MQTTConfig{Enabled: true, Broker: "localhost:1883"},
	}
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, "timeseries", cfg.GetOutputDir())
	assert.Equal(t, 5, cfg.GetRetries())
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
	assert.Equal(t, "icafetch/runs", cfg.GetMQTTTopic())
	assert.Contains(t, cfg.GetDataURL(), "pge.com")
	assert.Contains(t, cfg.GetLoginURL(), "integration-capacity-map")
}

func TestGetFeederSource_Inference(t *testing.T) {
	assert.Equal(t, "index", (&Config{}).GetFeederSource())
	assert.Equal(t, "shapefile", (&Config{Feeders: FeederConfig{Shapefile: "a.shp"}}).GetFeederSource())
	assert.Equal(t, "file", (&Config{Feeders: FeederConfig{ListFile: "ids.txt"}}).GetFeederSource())

	// Explicit source wins over inference
	cfg := &Config{Feeders: FeederConfig{Source: "index", Shapefile: "a.shp"}}
	assert.Equal(t, "index", cfg.GetFeederSource())
}
