// Package conf loads and holds the client configuration. Configuration is
// read from a YAML config file, environment variables and defaults, in that
// order of precedence.
package conf

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/argiloff/archaeotools-cms/internal/errors"
)

// LogSettings controls log output.
type LogSettings struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
	Path  string `yaml:"path"`  // log file path, empty logs to stdout
}

// MainSettings holds application-wide settings.
type MainSettings struct {
	Name string      `yaml:"name"` // client name reported in User-Agent
	Log  LogSettings `yaml:"log"`
}

// APISettings configures the connection to the backend REST API.
type APISettings struct {
	BaseURL        string        `yaml:"baseurl"`        // backend API base URL
	StorageBaseURL string        `yaml:"storagebaseurl"` // public object-storage base URL, optional
	Timeout        time.Duration `yaml:"timeout"`        // per-request timeout
	RetryMax       int           `yaml:"retrymax"`       // max retries on 429
	RetryBackoff   time.Duration `yaml:"retrybackoff"`   // backoff unit per 429 attempt
}

// SessionSettings configures where the authenticated session is persisted.
type SessionSettings struct {
	Path string `yaml:"path"` // session file path
}

// ImportSettings tunes the bulk dataset import pipeline.
type ImportSettings struct {
	ProjectName   string        `yaml:"projectname"`   // name of the project the import creates
	PlaceDelay    time.Duration `yaml:"placedelay"`    // pause between place creations
	PhotoDelay    time.Duration `yaml:"photodelay"`    // pause between photo uploads
	DeleteDelay   time.Duration `yaml:"deletedelay"`   // pause between project deletions
	RetryAttempts int           `yaml:"retryattempts"` // attempts per step on 429
	RetryBackoff  time.Duration `yaml:"retrybackoff"`  // backoff unit per attempt
	MaxFilePlaces int           `yaml:"maxfileplaces"` // cap for file-based place imports
}

// Settings is the root configuration structure.
type Settings struct {
	Debug   bool            `yaml:"debug"`
	Main    MainSettings    `yaml:"main"`
	API     APISettings     `yaml:"api"`
	Session SessionSettings `yaml:"session"`
	Import  ImportSettings  `yaml:"import"`
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := DefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("archaeotools")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file is fine, defaults plus env cover everything
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// DefaultConfigPaths returns the list of directories searched for config.yaml,
// in order of preference.
func DefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	home, err := os.UserHomeDir()
	if err != nil {
		// Home directory may be unset in minimal environments
		return paths, nil
	}
	return append(paths, filepath.Join(home, ".config", "archaeotools")), nil
}

// ValidateSettings checks that the loaded settings are usable.
func ValidateSettings(settings *Settings) error {
	if settings.API.BaseURL == "" {
		return errors.Newf("api.baseurl must be set").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	u, err := url.Parse(settings.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf("api.baseurl %q is not an absolute URL", settings.API.BaseURL).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	if settings.API.RetryMax < 0 {
		return errors.Newf("api.retrymax must not be negative").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	if settings.Import.RetryAttempts < 1 {
		return errors.Newf("import.retryattempts must be at least 1").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	return nil
}

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
