package models

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config represents the main configuration
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Lists   []FilterList  `mapstructure:"lists"`
}

// HTTPConfig contains HTTP client settings
type HTTPConfig struct {
	Timeout time.Duration     `mapstructure:"timeout"`
	Retries int               `mapstructure:"retries"`
	MaxSize datasize.ByteSize `mapstructure:"max_size"`
}

// EngineConfig contains the feature toggles of the engine and the inputs it
// is built from besides the lists.
type EngineConfig struct {
	// Env are the preprocessor flags, like "ext_ublock" or "env_firefox".
	Env map[string]bool `mapstructure:"env"`

	// ResourcesURL is the redirect resources and scriptlets distribution.
	ResourcesURL string `mapstructure:"resources_url"`

	Debug                                  bool `mapstructure:"debug"`
	EnableCompression                      bool `mapstructure:"enable_compression"`
	EnableHTMLFiltering                    bool `mapstructure:"enable_html_filtering"`
	EnableInMemoryCache                    bool `mapstructure:"enable_in_memory_cache"`
	EnableMutationObserver                 bool `mapstructure:"enable_mutation_observer"`
	EnableOptimizations                    bool `mapstructure:"enable_optimizations"`
	EnablePushInjectionsOnNavigationEvents bool `mapstructure:"enable_push_injections_on_navigation_events"`
	GuessRequestTypeFromURL                bool `mapstructure:"guess_request_type_from_url"`
	IntegrityCheck                         bool `mapstructure:"integrity_check"`
	LoadCSPFilters                         bool `mapstructure:"load_csp_filters"`
	LoadCosmeticFilters                    bool `mapstructure:"load_cosmetic_filters"`
	LoadExceptionFilters                   bool `mapstructure:"load_exception_filters"`
	LoadExtendedSelectors                  bool `mapstructure:"load_extended_selectors"`
	LoadGenericCosmeticsFilters            bool `mapstructure:"load_generic_cosmetics_filters"`
	LoadNetworkFilters                     bool `mapstructure:"load_network_filters"`
	LoadPreprocessors                      bool `mapstructure:"load_preprocessors"`
}

// Cache backends.
const (
	CacheBackendNone = "none"
	CacheBackendFile = "file"
	CacheBackendBolt = "bolt"
)

// CacheConfig contains the settings of the serialized engine cache
type CacheConfig struct {
	// Backend is one of CacheBackendNone, CacheBackendFile or
	// CacheBackendBolt.
	Backend string `mapstructure:"backend"`

	// Path is the cache file or the bbolt database.
	Path string `mapstructure:"path"`

	// Bucket is the bbolt bucket, unused by the file backend.
	Bucket string `mapstructure:"bucket"`
}

// LogConfig contains logging settings
type LogConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `mapstructure:"level"`

	// Format is one of "default", "text", "json" or "adguard_legacy".
	Format string `mapstructure:"format"`

	Timestamp bool `mapstructure:"timestamp"`
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	Listen  string `mapstructure:"listen"`
	Enabled bool   `mapstructure:"enabled"`
}

// FilterList represents a single filter list configuration.  Exactly one of
// URL and Path is set.
type FilterList struct {
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// Source returns the location the list is read from.
func (l FilterList) Source() string {
	if l.Path != "" {
		return l.Path
	}

	return l.URL
}

// EnabledLists returns only enabled filter lists
func (c *Config) EnabledLists() []FilterList {
	var enabled []FilterList
	for _, l := range c.Lists {
		if l.Enabled {
			enabled = append(enabled, l)
		}
	}
	return enabled
}
