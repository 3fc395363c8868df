package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/adblock-engine/internal/cache"
	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/fetcher"
	"github.com/bnema/adblock-engine/internal/logging"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultConfigPath is where init writes the configuration and where it is
// looked up first.
const defaultConfigPath = "./configs/adblock.toml"

var (
	cfgFile     string
	withMetrics bool
	cfg         models.Config
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the command until it finishes or the process is interrupted.
func execute() (err error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

var rootCmd = &cobra.Command{
	Use:   "adblock-engine",
	Short: "Match requests and pages against adblock filter lists",
	Long: `A tool that builds a filtering engine from EasyList and uBlock Origin
filter lists, caches it in a compact binary form and answers blocking,
cosmetic, CSP and HTML filtering queries.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: "+defaultConfigPath+")")

	buildCmd.Flags().String("trackerdb", "", "tracker database dump to merge into the engine")
	buildCmd.Flags().Bool("verbose", false, "print every unsupported line")

	for _, c := range []*cobra.Command{matchCmd, cosmeticsCmd, cspCmd, htmlCmd} {
		c.Flags().StringP("url", "u", "", "URL of the request or page")
		_ = c.MarkFlagRequired("url")
	}

	matchCmd.Flags().StringP("type", "t", "other", "request type (script, image, main_frame, ...)")
	matchCmd.Flags().StringP("source", "s", "", "URL of the page the request comes from")
	matchCmd.Flags().Bool("metadata", false, "print the trackers matched")

	cosmeticsCmd.Flags().StringSlice("class", nil, "classes found in the page")
	cosmeticsCmd.Flags().StringSlice("id", nil, "ids found in the page")
	cosmeticsCmd.Flags().StringSlice("href", nil, "links found in the page")

	watchCmd.Flags().BoolVar(&withMetrics, "metrics", false, "serve Prometheus metrics of engine events on metrics.listen")

	inspectCmd.Flags().StringP("file", "f", "", "serialized engine (default: the configured cache)")

	rootCmd.AddCommand(buildCmd, matchCmd, cosmeticsCmd, cspCmd, htmlCmd, inspectCmd, listCmd, initCmd, watchCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("adblock")
		viper.SetConfigType("toml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("ADBLOCK")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("http.timeout", fetcher.DefaultTimeout.String())
	viper.SetDefault("http.retries", fetcher.DefaultRetries)
	viper.SetDefault("http.max_size", fetcher.DefaultMaxSize.String())
	viper.SetDefault("cache.backend", models.CacheBackendFile)
	viper.SetDefault("cache.path", "./cache/engine.bin")
	viper.SetDefault("cache.bucket", cache.DefaultBucket)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "default")
	viper.SetDefault("metrics.listen", "127.0.0.1:9153")
	setEngineDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := viper.Unmarshal(&cfg, hook); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
	}
}

// setEngineDefaults sets the defaults of the [engine] section to the
// default engine configuration.
func setEngineDefaults() {
	d := engine.DefaultConfig()
	viper.SetDefault("engine.debug", d.Debug)
	viper.SetDefault("engine.enable_compression", d.EnableCompression)
	viper.SetDefault("engine.enable_html_filtering", d.EnableHTMLFiltering)
	viper.SetDefault("engine.enable_in_memory_cache", d.EnableInMemoryCache)
	viper.SetDefault("engine.enable_mutation_observer", d.EnableMutationObserver)
	viper.SetDefault("engine.enable_optimizations", d.EnableOptimizations)
	viper.SetDefault("engine.enable_push_injections_on_navigation_events", d.EnablePushInjectionsOnNavigationEvents)
	viper.SetDefault("engine.guess_request_type_from_url", d.GuessRequestTypeFromURL)
	viper.SetDefault("engine.integrity_check", d.IntegrityCheck)
	viper.SetDefault("engine.load_csp_filters", d.LoadCSPFilters)
	viper.SetDefault("engine.load_cosmetic_filters", d.LoadCosmeticFilters)
	viper.SetDefault("engine.load_exception_filters", d.LoadExceptionFilters)
	viper.SetDefault("engine.load_extended_selectors", d.LoadExtendedSelectors)
	viper.SetDefault("engine.load_generic_cosmetics_filters", d.LoadGenericCosmeticsFilters)
	viper.SetDefault("engine.load_network_filters", d.LoadNetworkFilters)
	viper.SetDefault("engine.load_preprocessors", d.LoadPreprocessors)
}

// newLogger returns the logger described by the [log] section.  Logs go to
// stderr so that stdout only carries results.
func newLogger() (l *slog.Logger, err error) {
	l, err = logging.New(&cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}

	return l, nil
}
