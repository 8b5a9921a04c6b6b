package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	apiAddr        string
	outputFormat   string
	retries        int
	requestTimeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "perfdash",
		Short: "perfdash performance run CLI",
		Long:  `perfdash lists, summarizes and charts performance test runs served by a perfdash server.`,
	}

	// Get default API address from env var if set
	defaultAddr := "http://localhost:8080"
	if envAddr := os.Getenv("PERFDASH_API"); envAddr != "" {
		defaultAddr = envAddr
	}

	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", defaultAddr, "perfdash server address (env: PERFDASH_API)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "Retries for failed requests")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(trendsCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
