// Command harvester collects code fragments from GitHub code search.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/harvester/internal/adapters/driven/auth"
	"github.com/custodia-labs/harvester/internal/adapters/driven/config/file"
	"github.com/custodia-labs/harvester/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/harvester/internal/adapters/driving/cli"
	"github.com/custodia-labs/harvester/internal/connectors/githubcode"
	"github.com/custodia-labs/harvester/internal/core/services"
	"github.com/custodia-labs/harvester/internal/logger"
	"github.com/custodia-labs/harvester/internal/metrics"
)

// version is set via -ldflags at release time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	tokens := auth.NewConfigTokenProvider(configStore)

	cfg, err := githubcode.ParseConfig(configStore)
	if err != nil {
		logger.Warn("ignoring invalid config in %s: %v", configStore.Path(), err)
		cfg = githubcode.DefaultConfig()
	}

	recorder := metrics.NewPrometheus(prometheus.DefaultRegisterer)
	connector := githubcode.New(cfg, tokens, githubcode.WithConnectorRecorder(recorder))
	defer connector.Close()

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Harvest:     services.NewAggregator(store.HarvestStore(), connector),
		Credentials: connector,
		Config:      configStore,
		Tokens:      tokens,
		Metrics:     metrics.Handler(prometheus.DefaultGatherer),
	})

	return cli.Execute()
}
