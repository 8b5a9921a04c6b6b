package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/NavarchProject/perfdash/pkg/chart"
	"github.com/NavarchProject/perfdash/pkg/perf"
)

func chartCmd() *cobra.Command {
	var filters filterFlags
	var outPath string
	var width, height int

	cmd := &cobra.Command{
		Use:       "chart <tpsChart|latencyChart|failRateChart>",
		Short:     "Render a dashboard chart to a PNG file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: chart.IDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
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

			c, err := chart.Build(id, perf.Normalize(rows))
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = id + ".png"
			}
			return writePNG(c, outPath, width, height)
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&outPath, "file", "f", "", "Output file (default <chart>.png)")
	cmd.Flags().IntVar(&width, "width", chart.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", chart.DefaultHeight, "Image height in pixels")
	return cmd
}

func writePNG(c *chart.Chart, path string, width, height int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := c.RenderPNG(f, width, height); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render %s: %w", c.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	pterm.Success.Printfln("Wrote %s (%d points)", path, c.Len())
	return nil
}
