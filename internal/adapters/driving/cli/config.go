package cli

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/adapters/driven/auth"
	"github.com/custodia-labs/harvester/internal/connectors/githubcode"
)

// knownKeys are listed by 'config get' even when unset.
var knownKeys = []string{
	auth.KeyGitHubToken,
	githubcode.KeyPerPage,
	githubcode.KeyMaxRetries,
	githubcode.KeyRequestsPerSecond,
	githubcode.KeyBaseURL,
}

// stringKeys are stored verbatim, never parsed as numbers.
var stringKeys = []string{auth.KeyGitHubToken, githubcode.KeyBaseURL}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change configuration",
	Long: `Reads and writes ~/.harvester/config.toml.

Keys:
  github.token                GitHub API key (prefer 'harvester auth login')
  github.per_page             results per page, 1-100 (default 100)
  github.max_retries          retries of one rate-limited page, 0 = unlimited (default 5)
  github.requests_per_second  proactive request rate (default 0.1667)
  github.base_url             GitHub Enterprise API URL`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one or all configuration values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// keyLister is implemented by config stores that can enumerate keys.
type keyLister interface {
	Keys() []string
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	if len(args) == 1 {
		val, ok := configStore.Get(args[0])
		if !ok {
			return fmt.Errorf("key not set: %s", args[0])
		}
		cmd.Println(displayValue(args[0], val))
		return nil
	}

	keys := slices.Clone(knownKeys)
	if lister, ok := configStore.(keyLister); ok {
		for _, k := range lister.Keys() {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}

	cmd.Printf("Config file: %s\n", configStore.Path())
	for _, key := range keys {
		val, ok := configStore.Get(key)
		if !ok {
			cmd.Printf("  %-28s %s\n", key, mutedStyle.Render("(not set)"))
			continue
		}
		cmd.Printf("  %-28s %s\n", key, displayValue(key, val))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	value := parseValue(raw)
	if slices.Contains(stringKeys, key) {
		value = raw
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	cmd.Printf("Set %s = %s\n", key, displayValue(key, value))
	return nil
}

// parseValue stores numbers and booleans with their TOML types.
func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func displayValue(key string, val any) string {
	if key == auth.KeyGitHubToken {
		s, _ := val.(string)
		return maskToken(s)
	}
	return fmt.Sprint(val)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
