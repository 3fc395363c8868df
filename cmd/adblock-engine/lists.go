package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured filter lists",
	RunE:  runList,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runInit,
}

func runList(cmd *cobra.Command, args []string) error {
	fmt.Println("Configured filter lists:")
	fmt.Println()
	for _, list := range cfg.Lists {
		status := "enabled"
		if !list.Enabled {
			status = "disabled"
		}
		fmt.Printf("  [%s] %s\n", status, list.Name)
		fmt.Printf("         %s\n\n", list.Source())
	}
	return nil
}

// defaultConfig is the configuration written by init.
const defaultConfig = `# Adblock engine configuration

# HTTP client settings
[http]
timeout = "30s"
retries = 3
max_size = "64MB"

# Engine settings, stored in the serialized engine
[engine]
load_network_filters = true
load_cosmetic_filters = true
load_generic_cosmetics_filters = true
load_exception_filters = true
load_csp_filters = true
load_preprocessors = true
load_extended_selectors = false
enable_html_filtering = false
enable_compression = false
guess_request_type_from_url = false
integrity_check = true
resources_url = "https://raw.githubusercontent.com/ghostery/adblocker/master/packages/adblocker/assets/ublock-origin/resources.json"

# Preprocessor flags for !#if directives
[engine.env]
ext_ublock = true
cap_html_filtering = false

# Serialized engine cache: "file", "bolt" or "none"
[cache]
backend = "file"
path = "./cache/engine.bin"

[log]
level = "info"
format = "default"
timestamp = false

# Prometheus metrics served by the watch command
[metrics]
enabled = false
listen = "127.0.0.1:9153"

# Filter lists, fetched from url or read from path
# Set enabled = false to skip a list

[[lists]]
name = "easylist"
url = "https://easylist.to/easylist/easylist.txt"
enabled = true

[[lists]]
name = "easyprivacy"
url = "https://easylist.to/easylist/easyprivacy.txt"
enabled = true

[[lists]]
name = "ublock-filters"
url = "https://ublockorigin.github.io/uAssets/filters/filters.txt"
enabled = true

[[lists]]
name = "ublock-privacy"
url = "https://ublockorigin.github.io/uAssets/filters/privacy.txt"
enabled = true

[[lists]]
name = "ublock-badware"
url = "https://ublockorigin.github.io/uAssets/filters/badware.txt"
enabled = true

[[lists]]
name = "ublock-unbreak"
url = "https://ublockorigin.github.io/uAssets/filters/unbreak.txt"
enabled = true

[[lists]]
name = "peter-lowe"
url = "https://pgl.yoyo.org/adservers/serverlist.php?hostformat=adblockplus&showintro=0&mimetype=plaintext"
enabled = true

[[lists]]
name = "custom"
path = "./configs/custom.txt"
enabled = false
`

func runInit(cmd *cobra.Command, args []string) error {
	configPath := defaultConfigPath
	if cfgFile != "" {
		configPath = cfgFile
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return err
	}

	fmt.Printf("Created config file: %s\n", configPath)
	return nil
}
