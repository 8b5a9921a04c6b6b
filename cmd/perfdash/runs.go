package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/NavarchProject/perfdash/pkg/client"
	"github.com/NavarchProject/perfdash/pkg/perf"
)

// filterFlags holds the listing criteria as entered on the command line.
type filterFlags struct {
	releaseTag   string
	testScenario string
	minAvgTPS    string
	maxAvgTPS    string
	minP95       string
	maxP95       string
	maxFailedPct string
	expr         string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.releaseTag, "release-tag", "", "Only runs whose release tag contains this text")
	cmd.Flags().StringVar(&f.testScenario, "scenario", "", "Only runs whose test scenario contains this text")
	cmd.Flags().StringVar(&f.minAvgTPS, "min-avg-tps", "", "Minimum average TPS")
	cmd.Flags().StringVar(&f.maxAvgTPS, "max-avg-tps", "", "Maximum average TPS")
	cmd.Flags().StringVar(&f.minP95, "min-p95-latency", "", "Minimum p95 latency in ms")
	cmd.Flags().StringVar(&f.maxP95, "max-p95-latency", "", "Maximum p95 latency in ms")
	cmd.Flags().StringVar(&f.maxFailedPct, "max-failed-pct", "", "Maximum failed transaction percentage (0-100)")
	cmd.Flags().StringVar(&f.expr, "expr", "", `CEL expression over run, e.g. 'run.avg_tps > 100.0'`)
}

// criteria validates the flags the same way the server validates a query.
func (f *filterFlags) criteria() (*perf.Criteria, error) {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("release_tag", f.releaseTag)
	set("test_scenario", f.testScenario)
	set("min_avg_tps", f.minAvgTPS)
	set("max_avg_tps", f.maxAvgTPS)
	set("min_p95_latency_ms", f.minP95)
	set("max_p95_latency_ms", f.maxP95)
	set("max_failed_txn_pct", f.maxFailedPct)
	set("expr", f.expr)

	c, err := perf.ParseQuery(q)
	if err != nil {
		return nil, err
	}
	if c.IsZero() {
		return nil, nil
	}
	return &c, nil
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and inspect performance runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsGetCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List performance runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()

			rows, err := newClient().ListRuns(ctx, criteria)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			switch outputFormat {
			case "json":
				return outputJSON(rows)
			case "table":
				if len(rows) == 0 {
					fmt.Println("No runs found")
					return nil
				}
				return outputRunsTable(perf.Normalize(rows))
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}

	filters.register(cmd)
	return cmd
}

func runsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <row-no>",
		Short: "Get the run with the given row number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowNo, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid row number %q", args[0])
			}

			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()

			row, err := newClient().GetRun(ctx, rowNo)
			if client.IsNotFound(err) {
				return fmt.Errorf("run %d not found", rowNo)
			}
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}

			switch outputFormat {
			case "json":
				return outputJSON(row)
			case "table":
				outputRunDetails(row)
				return nil
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputRunsTable(rows []perf.DisplayRow) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Append([]string{"Run", "Scenario", "Avg TPS", "Peak TPS", "Baseline TPS", "P95 (ms)", "Failed"})

	for _, r := range rows {
		table.Append([]string{
			r.XLabel,
			truncate(r.TestScenario(), 40),
			formatNumber(r.AvgTPS),
			formatNumber(r.PeakTPS),
			formatNumber(r.BaselineAvgTPS),
			formatNumber(r.P95LatencyMs),
			formatPercent(r.FailedTxnPct),
		})
	}

	return table.Render()
}

func outputRunDetails(row perf.Row) {
	width := 0
	for _, k := range row.Keys() {
		width = max(width, len(k))
	}
	for _, k := range row.Keys() {
		v, _ := row.Get(k)
		fmt.Printf("%-*s  %s\n", width+1, k+":", perf.FormatValue(v))
	}
}
