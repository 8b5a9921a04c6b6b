package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the run count and average throughput and latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()

			summary, err := newClient().Summary(ctx)
			if err != nil {
				return fmt.Errorf("failed to get summary: %w", err)
			}

			switch outputFormat {
			case "json":
				return outputJSON(summary)
			case "table":
				pterm.DefaultSection.Println("Performance Summary")
				return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(pterm.TableData{
					{"Metric", "Value"},
					{"Total Runs", fmt.Sprintf("%d", summary.TotalRuns)},
					{"Average TPS", formatOptional(summary.AvgTPS)},
					{"Average P95 Latency (ms)", formatOptional(summary.AvgLatencyMs)},
				}).Render()
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}
}

func trendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show mean average TPS per release tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()

			trends, err := newClient().Trends(ctx)
			if err != nil {
				return fmt.Errorf("failed to get trends: %w", err)
			}

			switch outputFormat {
			case "json":
				return outputJSON(trends)
			case "table":
				if len(trends.TrendPoints) == 0 {
					pterm.Info.Println("No trend data")
					return nil
				}
				data := pterm.TableData{{"Release Tag", "Avg TPS"}}
				for _, p := range trends.TrendPoints {
					data = append(data, []string{p.Label, formatNumber(p.Value)})
				}
				pterm.DefaultSection.Println("Average TPS by Release")
				return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
			default:
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}
		},
	}
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the distinct release tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()

			tags, err := newClient().ReleaseTags(ctx)
			if err != nil {
				return fmt.Errorf("failed to list release tags: %w", err)
			}

			if outputFormat == "json" {
				return outputJSON(tags)
			}
			for _, tag := range tags {
				fmt.Println(tag)
			}
			return nil
		},
	}
}
