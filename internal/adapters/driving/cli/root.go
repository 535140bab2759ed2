// Package cli implements the harvester command line.
package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// version is set at build time.
var version = "dev"

// TokenStore persists and reports the GitHub API key.
type TokenStore interface {
	SetToken(token string) error
	Source() string
	IsAuthenticated() bool
}

// Services holds everything the commands call into.
type Services struct {
	Harvest     driving.HarvestService
	Credentials driving.CredentialChecker
	Config      driven.ConfigStore
	Tokens      TokenStore
	Metrics     http.Handler
}

// Package-level services, set by SetServices before Execute.
var (
	harvestService    driving.HarvestService
	credentialChecker driving.CredentialChecker
	configStore       driven.ConfigStore
	tokenStore        TokenStore
	metricsHandler    http.Handler
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvest code fragments from GitHub code search",
	Long: `harvester collects the matched code fragments GitHub code search returns
for a keyword, walking result pages until a limit is reached.

Set a GitHub token first with 'harvester auth login' or GITHUB_TOKEN.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version printed by 'harvester version'.
func SetVersion(v string) {
	version = v
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	harvestService = s.Harvest
	credentialChecker = s.Credentials
	configStore = s.Config
	tokenStore = s.Tokens
	metricsHandler = s.Metrics
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
