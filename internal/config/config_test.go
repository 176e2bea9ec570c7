// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5*time.Second, cfg.Capture.ImageLoadTimeout)
	assert.Equal(t, 300, cfg.Capture.MinImageDimension)
	assert.Equal(t, 100, cfg.Relay.ErrorBodyLimit)
	assert.Equal(t, ":8000", cfg.Ingest.Addr)
	assert.Equal(t, "collected_data", cfg.Ingest.DataDir)
	require.NoError(t, cfg.Validate())
}

func TestNewFromViper_RejectsBadValues(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("capture.image_load_timeout", "0s")

	_, err := NewFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image_load_timeout")
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
	}{
		{"default endpoint", DefaultAPIEndpoint, false},
		{"https endpoint", "https://ingest.example.com/api/ingest/extension", false},
		{"empty", "", true},
		{"no scheme", "ingest.example.com/api", true},
		{"bad scheme", "ftp://ingest.example.com", true},
		{"missing host", "http://", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileStore_LoadMissingFileYieldsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIEndpoint, rec.APIEndpoint)
	assert.Empty(t, rec.UserID)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewFileStore(path)

	want := Record{APIEndpoint: "https://ingest.example.com/api", UserID: "analyst-7"}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}
