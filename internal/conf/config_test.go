package conf

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir()) // make sure no config.yaml is picked up

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", settings.API.BaseURL)
	assert.Equal(t, 3, settings.API.RetryMax)
	assert.Equal(t, 1*time.Second, settings.API.RetryBackoff)
	assert.Equal(t, "Demo Dataset", settings.Import.ProjectName)
	assert.Equal(t, 150*time.Millisecond, settings.Import.PlaceDelay)
	assert.Equal(t, 250*time.Millisecond, settings.Import.PhotoDelay)
	assert.Equal(t, 1000, settings.Import.MaxFilePlaces)
}

func TestLoadEnvOverride(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())
	t.Setenv("ARCHAEOTOOLS_API_BASEURL", "https://api.example.org")

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.org", settings.API.BaseURL)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := &Settings{}
	valid.API.BaseURL = "https://api.example.org"
	valid.Import.RetryAttempts = 3
	require.NoError(t, ValidateSettings(valid))

	missing := &Settings{}
	missing.Import.RetryAttempts = 3
	assert.Error(t, ValidateSettings(missing))

	relative := &Settings{}
	relative.API.BaseURL = "/not/absolute"
	relative.Import.RetryAttempts = 3
	assert.Error(t, ValidateSettings(relative))

	badRetry := &Settings{}
	badRetry.API.BaseURL = "https://api.example.org"
	badRetry.Import.RetryAttempts = 0
	assert.Error(t, ValidateSettings(badRetry))
}
