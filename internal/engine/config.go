package engine

import (
	"github.com/bnema/adblock-engine/internal/bucket"
	"github.com/bnema/adblock-engine/internal/compression"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/parser"
)

// Config is the set of feature toggles of an engine.  It is frozen once the
// engine is built and is part of its serialized form.
type Config struct {
	Debug                                  bool
	EnableCompression                      bool
	EnableHTMLFiltering                    bool
	EnableInMemoryCache                    bool
	EnableMutationObserver                 bool
	EnableOptimizations                    bool
	EnablePushInjectionsOnNavigationEvents bool
	GuessRequestTypeFromURL                bool
	IntegrityCheck                         bool
	LoadCSPFilters                         bool
	LoadCosmeticFilters                    bool
	LoadExceptionFilters                   bool
	LoadExtendedSelectors                  bool
	LoadGenericCosmeticsFilters            bool
	LoadNetworkFilters                     bool
	LoadPreprocessors                      bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() (c *Config) {
	return &Config{
		EnableInMemoryCache:                    true,
		EnableMutationObserver:                 true,
		EnableOptimizations:                    true,
		EnablePushInjectionsOnNavigationEvents: true,
		IntegrityCheck:                         true,
		LoadCSPFilters:                         true,
		LoadCosmeticFilters:                    true,
		LoadExceptionFilters:                   true,
		LoadGenericCosmeticsFilters:            true,
		LoadNetworkFilters:                     true,
	}
}

// ConfigFromModel returns the configuration described by the [engine]
// section of the configuration file.
func ConfigFromModel(m *models.EngineConfig) (c *Config) {
	return &Config{
		Debug:                                  m.Debug,
		EnableCompression:                      m.EnableCompression,
		EnableHTMLFiltering:                    m.EnableHTMLFiltering,
		EnableInMemoryCache:                    m.EnableInMemoryCache,
		EnableMutationObserver:                 m.EnableMutationObserver,
		EnableOptimizations:                    m.EnableOptimizations,
		EnablePushInjectionsOnNavigationEvents: m.EnablePushInjectionsOnNavigationEvents,
		GuessRequestTypeFromURL:                m.GuessRequestTypeFromURL,
		IntegrityCheck:                         m.IntegrityCheck,
		LoadCSPFilters:                         m.LoadCSPFilters,
		LoadCosmeticFilters:                    m.LoadCosmeticFilters,
		LoadExceptionFilters:                   m.LoadExceptionFilters,
		LoadExtendedSelectors:                  m.LoadExtendedSelectors,
		LoadGenericCosmeticsFilters:            m.LoadGenericCosmeticsFilters,
		LoadNetworkFilters:                     m.LoadNetworkFilters,
		LoadPreprocessors:                      m.LoadPreprocessors,
	}
}

// fields returns pointers to the fields of c in serialization order.
func (c *Config) fields() (fs []*bool) {
	return []*bool{
		&c.Debug,
		&c.EnableCompression,
		&c.EnableHTMLFiltering,
		&c.EnableInMemoryCache,
		&c.EnableMutationObserver,
		&c.EnableOptimizations,
		&c.EnablePushInjectionsOnNavigationEvents,
		&c.GuessRequestTypeFromURL,
		&c.IntegrityCheck,
		&c.LoadCSPFilters,
		&c.LoadCosmeticFilters,
		&c.LoadExceptionFilters,
		&c.LoadExtendedSelectors,
		&c.LoadGenericCosmeticsFilters,
		&c.LoadNetworkFilters,
		&c.LoadPreprocessors,
	}
}

// fieldNames are the names of the fields of Config in serialization order,
// used in error messages.
var fieldNames = []string{
	"debug",
	"enableCompression",
	"enableHtmlFiltering",
	"enableInMemoryCache",
	"enableMutationObserver",
	"enableOptimizations",
	"enablePushInjectionsOnNavigationEvents",
	"guessRequestTypeFromUrl",
	"integrityCheck",
	"loadCSPFilters",
	"loadCosmeticFilters",
	"loadExceptionFilters",
	"loadExtendedSelectors",
	"loadGenericCosmeticsFilters",
	"loadNetworkFilters",
	"loadPreprocessors",
}

// Serialize writes c to v, one bool per field.
func (c *Config) Serialize(v *dataview.View) {
	for _, f := range c.fields() {
		v.PushBool(*f)
	}
}

// SerializedSize returns the number of bytes Serialize writes.
func (c *Config) SerializedSize() (n int) {
	return len(fieldNames) * dataview.SizeOfBool
}

// DeserializeConfig reads a configuration written by Serialize.
func DeserializeConfig(v *dataview.View) (c *Config) {
	c = &Config{}
	for _, f := range c.fields() {
		*f = v.GetBool()
	}

	return c
}

// mismatch returns the name of the first field differing between c and
// other, or an empty string.
func (c *Config) mismatch(other *Config) (name string) {
	ours, theirs := c.fields(), other.fields()
	for i, f := range ours {
		if *f != *theirs[i] {
			return fieldNames[i]
		}
	}

	return ""
}

// compression returns the codebooks to use, nil when compression is off.
func (c *Config) compression() (comp *compression.Compression) {
	if c.EnableCompression {
		return compression.New()
	}

	return nil
}

// bucketConfig returns the configuration shared by the buckets.
func (c *Config) bucketConfig() (conf *bucket.Config) {
	return &bucket.Config{
		Compression:           c.compression(),
		Debug:                 c.Debug,
		EnableOptimizations:   c.EnableOptimizations,
		LoadNetworkFilters:    c.LoadNetworkFilters,
		LoadCosmeticFilters:   c.LoadCosmeticFilters,
		LoadExtendedSelectors: c.LoadExtendedSelectors,
	}
}

// ParserConfig returns the configuration of the list parser.
func (c *Config) ParserConfig() (conf *parser.Config) {
	return &parser.Config{
		Debug:                       c.Debug,
		LoadNetworkFilters:          c.LoadNetworkFilters,
		LoadCosmeticFilters:         c.LoadCosmeticFilters,
		LoadGenericCosmeticsFilters: c.LoadGenericCosmeticsFilters,
		LoadPreprocessors:           c.LoadPreprocessors,
	}
}
