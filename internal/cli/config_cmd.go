package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alanmeadows/shipcheck/internal/config"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage shipcheck configuration",
	Long:  `Show and modify shipcheck configuration values.`,
}

var configJSONFlag bool

func init() {
	configShowCmd.Flags().BoolVar(&configJSONFlag, "json", false, "Output raw JSON without formatting")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cfg == nil {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}

		var data []byte
		var err error
		if configJSONFlag {
			data, err = json.Marshal(cfg)
		} else {
			data, err = json.MarshalIndent(cfg, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a configuration value using a dotted key path.

The value is written to .shipcheck/shipcheck.jsonc in the repository root.
The file is created if it does not exist.

Note: JSONC comments are not preserved on write.`,
	Example: `  shipcheck config set git.remote upstream
  shipcheck config set git.tag_prefix release-
  shipcheck config set publish.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := config.RepoRoot()
		if repoRoot == "" {
			return fmt.Errorf("not in a git repository")
		}

		path := filepath.Join(repoRoot, config.DirName, config.FileName)
		value, err := setConfigValue(path, args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], value)
		return nil
	},
}

// setConfigValue writes key=rawValue into the JSONC file at path. The value
// is typed as bool, then integer, then string.
func setConfigValue(path, key, rawValue string) (any, error) {
	var value any
	if b, err := strconv.ParseBool(rawValue); err == nil {
		value = b
	} else if i, err := strconv.ParseInt(rawValue, 10, 64); err == nil {
		value = i
	} else {
		value = rawValue
	}

	var existing []byte
	if data, err := os.ReadFile(path); err == nil {
		// sjson requires valid JSON.
		existing = jsonc.ToJSON(data)
	} else {
		existing = []byte("{}")
	}

	updated, err := sjson.SetBytes(existing, key, value)
	if err != nil {
		return nil, fmt.Errorf("setting key %q: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, updated, 0644); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return value, nil
}
