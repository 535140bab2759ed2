package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// DefaultLimit is the fragment limit when -n is not given.
const DefaultLimit = 100

var (
	harvestLimit       int
	harvestJSON        bool
	harvestNoHistory   bool
	harvestMetricsAddr string
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [keyword]",
	Short: "Collect code fragments for a keyword",
	Long: `Searches GitHub code for the keyword and collects the matched fragments,
page by page, until the limit is reached or results run out.

The keyword may carry GitHub search qualifiers:
  harvester harvest "addClass in:file language:js" -n 50

Rate-limited pages are retried after the server's delay. Press Ctrl+C to
stop early and keep what was collected.`,
	Args: cobra.ExactArgs(1),
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().IntVarP(&harvestLimit, "limit", "n", DefaultLimit, "maximum number of fragments")
	harvestCmd.Flags().BoolVar(&harvestJSON, "json", false, "output results as JSON")
	harvestCmd.Flags().BoolVar(&harvestNoHistory, "no-history", false, "do not save this harvest")
	harvestCmd.Flags().StringVar(&harvestMetricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address while harvesting (e.g. :9090)")
	rootCmd.AddCommand(harvestCmd)
}

// historyRecorder is implemented by services that can skip saving history.
type historyRecorder interface {
	SetRecordHistory(record bool)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	if harvestService == nil {
		return errors.New("harvest service not configured")
	}

	if r, ok := harvestService.(historyRecorder); ok {
		r.SetRecordHistory(!harvestNoHistory)
		defer r.SetRecordHistory(true)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if harvestMetricsAddr != "" {
		shutdown, err := serveMetrics(harvestMetricsAddr)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	result, err := harvestService.Harvest(ctx, args[0], harvestLimit)
	if result == nil {
		return fmt.Errorf("harvest failed: %w", err)
	}

	if harvestJSON {
		if outErr := outputHarvestJSON(cmd, result); outErr != nil {
			return outErr
		}
	} else {
		outputHarvestText(cmd, result)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return errors.New("harvest interrupted, partial results shown")
	case err != nil:
		return fmt.Errorf("harvest failed: %w", err)
	case len(result.Results) > 0 && len(result.Failed()) == len(result.Results):
		return errors.New("every source failed")
	}
	return nil
}

// serveMetrics exposes /metrics on addr and returns a shutdown func.
func serveMetrics(addr string) (func(), error) {
	if metricsHandler == nil {
		return nil, errors.New("metrics not configured")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln) //nolint:errcheck // returns ErrServerClosed on shutdown

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck
	}, nil
}

func outputHarvestJSON(cmd *cobra.Command, result *domain.AggregateResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputHarvestText(cmd *cobra.Command, result *domain.AggregateResult) {
	for _, r := range result.Results {
		status := string(r.Status)
		cmd.Printf("%s %s\n", titleStyle.Render(r.Source), statusStyle(status).Render("["+status+"]"))
		if r.Err != "" {
			cmd.Println(errorStyle.Render("  " + r.Err))
		}

		if len(r.Fragments) == 0 {
			cmd.Println(mutedStyle.Render("  No fragments found."))
			cmd.Println()
			continue
		}

		for i, fragment := range r.Fragments {
			cmd.Printf("  [%d]\n", i+1)
			cmd.Println(codeStyle.Render(strings.TrimRight(fragment, "\n")))
		}
		cmd.Println()
	}

	total := len(result.Fragments())
	cmd.Println(mutedStyle.Render(fmt.Sprintf("%d fragments for %q", total, result.Keyword)))
}
