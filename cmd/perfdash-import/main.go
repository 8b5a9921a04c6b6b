package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/NavarchProject/perfdash/pkg/importer"
	"github.com/NavarchProject/perfdash/pkg/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var driver, dsn string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "perfdash-import <file.csv|->",
		Short: "Import performance runs from a CSV file",
		Long: `Reads a CSV file whose header row names run fields (release_tag, row_no,
avg_tps, ...) and inserts every well-formed record. Malformed records are
reported and skipped.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("DATABASE_URL")
			}
			if driver != store.DriverMemory && dsn == "" {
				return fmt.Errorf("--dsn or DATABASE_URL is required for driver %q", driver)
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, args[0], driver, dsn, cmd.InOrStdin(), logger)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", store.DriverPostgres, "Storage driver (postgres, sqlite)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Storage DSN (env: DATABASE_URL)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log progress")
	return cmd
}

func run(ctx context.Context, path, driver, dsn string, stdin io.Reader, logger *slog.Logger) error {
	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}

	database, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer database.Close()

	res, err := importer.New(database, logger).Import(ctx, in)
	printResult(res)
	if err != nil {
		return fmt.Errorf("import stopped after %d records: %w", res.Imported+res.Skipped, err)
	}
	return nil
}

func printResult(res importer.Result) {
	pterm.DefaultSection.Println("Import")
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(pterm.TableData{
		{"Result", "Records"},
		{"Imported", fmt.Sprintf("%d", res.Imported)},
		{"Skipped", fmt.Sprintf("%d", res.Skipped)},
	}).Render()

	if len(res.Ignored) > 0 {
		pterm.Warning.Printfln("Ignored unknown columns: %v", res.Ignored)
	}
	if res.Skipped > 0 {
		pterm.Warning.Printfln("%d malformed records were skipped", res.Skipped)
	} else {
		pterm.Success.Printfln("Imported %d runs", res.Imported)
	}
}
